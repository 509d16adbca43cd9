package grid

import (
	"fmt"

	"github.com/CliMA/tempestmodel/mpi"
)

// ExteriorNeighbor is one directed connection from a patch boundary segment
// to a neighboring patch. Edge connections span a contiguous run of boundary
// cells [IxFirst, IxSecond) along the local tangential index. Corner
// connections carry the local (a, b) anchor cell in (IxFirst, IxSecond).
type ExteriorNeighbor struct {
	conn *Connectivity

	Dir         Direction
	DirOpposing Direction
	Reverse     bool
	Swap        bool

	DestPatchIx int
	DestRank    int

	IxFirst  int
	IxSecond int

	// Tag keys disambiguating corner connections that share a patch pair
	// and direction, such as a true corner plus a bridging corner toward
	// the same neighbor. Both peers derive the same key from the global
	// coordinate of the first exchanged cell; edge connections use zero.
	sendKey int
	recvKey int

	sendBuffer []float64
	recvBuffer []float64
	sendOffset int
	recvOffset int
	recvCount  int
}

// boundarySize is the tangential extent of the connection in cells.
func (n *ExteriorNeighbor) boundarySize(haloElements int) int {
	if n.Dir.IsCorner() {
		return haloElements
	}
	return n.IxSecond - n.IxFirst
}

func (n *ExteriorNeighbor) allocateBuffers(maxComponents, rElements, haloElements int) {
	capacity := maxComponents * (2*rElements + 1) *
		haloElements * n.boundarySize(haloElements)
	n.sendBuffer = make([]float64, capacity)
	n.recvBuffer = make([]float64, capacity)
}

func (n *ExteriorNeighbor) reset() {
	n.sendOffset = 0
	n.recvOffset = 0
	n.recvCount = 0
}

// pack appends the connection's boundary region of one field to the send
// buffer. The region is the strip of interior cells of depth haloElements
// adjacent to the connection, traversed in the sender's own index order.
func (n *ExteriorNeighbor) pack(nc, nr int, index func(c, k, i, j int) int, data []float64) {
	var (
		box  = n.conn.patch.Box()
		h    = box.HaloElements()
		size = n.boundarySize(h)
	)

	if n.Dir.IsCorner() {
		// ua, va step from the anchor cell into the interior.
		ua, va := 1, 1
		switch n.Dir {
		case DirBottomRight:
			ua = -1
		case DirTopRight:
			ua, va = -1, -1
		case DirTopLeft:
			va = -1
		}
		for c := 0; c < nc; c++ {
			for k := 0; k < nr; k++ {
				for u := 0; u < h; u++ {
					for v := 0; v < h; v++ {
						a := n.IxFirst + ua*u
						b := n.IxSecond + va*v
						n.sendBuffer[n.sendOffset] = data[index(c, k, a, b)]
						n.sendOffset++
					}
				}
			}
		}
		return
	}

	for c := 0; c < nc; c++ {
		for k := 0; k < nr; k++ {
			for p := 0; p < h; p++ {
				for s := 0; s < size; s++ {
					var a, b int
					switch n.Dir {
					case DirBottom:
						a, b = n.IxFirst+s, box.BInteriorBegin()+p
					case DirTop:
						a, b = n.IxFirst+s, box.BInteriorEnd()-1-p
					case DirRight:
						a, b = box.AInteriorEnd()-1-p, n.IxFirst+s
					case DirLeft:
						a, b = box.AInteriorBegin()+p, n.IxFirst+s
					}
					n.sendBuffer[n.sendOffset] = data[index(c, k, a, b)]
					n.sendOffset++
				}
			}
		}
	}
}

// unpack consumes the connection's region of one field from the receive
// buffer into the halo cells beyond the connection. The buffer arrives in
// the sender's index order; Reverse and Swap translate it to local order.
func (n *ExteriorNeighbor) unpack(nc, nr int, index func(c, k, i, j int) int, data []float64) {
	var (
		box  = n.conn.patch.Box()
		h    = box.HaloElements()
		size = n.boundarySize(h)
	)

	if n.Dir.IsCorner() {
		// ua, va step from the anchor cell outward into the halo.
		ua, va := -1, -1
		switch n.Dir {
		case DirBottomRight:
			ua = 1
		case DirTopRight:
			ua, va = 1, 1
		case DirTopLeft:
			va = 1
		}
		for c := 0; c < nc; c++ {
			for k := 0; k < nr; k++ {
				for us := 0; us < h; us++ {
					for vs := 0; vs < h; vs++ {
						u, v := us, vs
						if n.Swap {
							u, v = vs, us
						}
						a := n.IxFirst + ua*(1+u)
						b := n.IxSecond + va*(1+v)
						data[index(c, k, a, b)] = n.recvBuffer[n.recvOffset]
						n.recvOffset++
					}
				}
			}
		}
		return
	}

	for c := 0; c < nc; c++ {
		for k := 0; k < nr; k++ {
			for q := 0; q < h; q++ {
				for ss := 0; ss < size; ss++ {
					s := ss
					if n.Reverse {
						s = size - 1 - ss
					}
					var a, b int
					switch n.Dir {
					case DirBottom:
						a, b = n.IxFirst+s, box.BInteriorBegin()-1-q
					case DirTop:
						a, b = n.IxFirst+s, box.BInteriorEnd()+q
					case DirRight:
						a, b = box.AInteriorEnd()+q, n.IxFirst+s
					case DirLeft:
						a, b = box.AInteriorBegin()-1-q, n.IxFirst+s
					}
					data[index(c, k, a, b)] = n.recvBuffer[n.recvOffset]
					n.recvOffset++
				}
			}
		}
	}
}

func (n *ExteriorNeighbor) packData4D(d *GridData4D) {
	n.pack(d.NC, d.NR, d.Index, d.Data)
}

func (n *ExteriorNeighbor) unpackData4D(d *GridData4D) {
	n.unpack(d.NC, d.NR, d.Index, d.Data)
}

func (n *ExteriorNeighbor) packData3D(d *GridData3D) {
	n.pack(1, d.NR, func(c, k, i, j int) int { return d.Index(k, i, j) }, d.Data)
}

func (n *ExteriorNeighbor) unpackData3D(d *GridData3D) {
	n.unpack(1, d.NR, func(c, k, i, j int) int { return d.Index(k, i, j) }, d.Data)
}

// validateReceive checks that the neighbor's message was fully consumed.
func (n *ExteriorNeighbor) validateReceive() {
	if n.recvOffset != n.recvCount {
		panic(&SizeMismatchError{
			Context: fmt.Sprintf(
				"exchange message from patch %d (%s)", n.DestPatchIx, n.DirOpposing),
			Expected: n.recvOffset,
			Got:      n.recvCount,
		})
	}
}

// messageTag addresses one directed connection between two patches. The
// direction disambiguates connections joining the same patch pair; key
// disambiguates corner connections sharing both pair and direction, which
// arise where an edge split bridges the same diagonal neighbor a patch
// already touches at a true corner. key must be less than keyRange.
func messageTag(destPatch, srcPatch, nPatches int, dir Direction, key, keyRange int) int {
	return ((destPatch*nPatches+srcPatch)*8+int(dir))*keyRange + key
}

// tagKeyRange bounds the anchor keys at a patch's refinement level. Keys
// linearize a global cell coordinate, so the bound is one past the square
// of the panel resolution.
func (c *Connectivity) tagKeyRange() int {
	res := c.patch.Grid().BaseResolution(c.patch.Box().RefinementLevel())
	return res*res + 1
}

// Connectivity holds a patch's exterior connections and drives the halo
// exchange protocol: PrepareExchange posts receives, Pack and Send ship the
// boundary data, WaitReceive yields neighbors as their messages land, and
// WaitSend drains outstanding sends.
type Connectivity struct {
	patch *GridPatch

	neighbors []*ExteriorNeighbor

	recvRequests    []*mpi.Request
	recvOutstanding int
	sendRequests    []*mpi.Request
}

func NewConnectivity(patch *GridPatch) *Connectivity {
	return &Connectivity{patch: patch}
}

func (c *Connectivity) Neighbors() []*ExteriorNeighbor { return c.neighbors }

func (c *Connectivity) addNeighbor(n *ExteriorNeighbor) {
	n.conn = c
	c.neighbors = append(c.neighbors, n)
}

// PrepareExchange resets buffer cursors and posts one wildcard-source
// receive per neighbor. Tags make wildcard receives safe: each posted
// receive only matches the message of its own connection.
func (c *Connectivity) PrepareExchange() {
	var (
		grid = c.patch.Grid()
		comm = grid.Comm()
	)
	c.recvRequests = c.recvRequests[:0]
	for _, n := range c.neighbors {
		n.reset()
		tag := messageTag(c.patch.Index(), n.DestPatchIx, grid.PatchCount(),
			n.DirOpposing, n.recvKey, c.tagKeyRange())
		c.recvRequests = append(c.recvRequests,
			comm.Irecv(mpi.AnySource, tag, n.recvBuffer))
	}
	c.recvOutstanding = len(c.recvRequests)
}

// Send ships every neighbor's packed send buffer.
func (c *Connectivity) Send() {
	var (
		grid = c.patch.Grid()
		comm = grid.Comm()
	)
	for _, n := range c.neighbors {
		tag := messageTag(n.DestPatchIx, c.patch.Index(), grid.PatchCount(),
			n.Dir, n.sendKey, c.tagKeyRange())
		c.sendRequests = append(c.sendRequests,
			comm.Isend(n.DestRank, tag, n.sendBuffer[:n.sendOffset]))
	}
}

// WaitReceive blocks until any outstanding receive completes and returns
// its neighbor. It returns nil once every posted receive has been consumed.
func (c *Connectivity) WaitReceive() *ExteriorNeighbor {
	if c.recvOutstanding == 0 {
		return nil
	}
	comm := c.patch.Grid().Comm()
	ix, status := comm.WaitAny(c.recvRequests)
	c.recvOutstanding--

	n := c.neighbors[ix]
	if status.Count > len(n.recvBuffer) {
		panic(&SizeMismatchError{
			Context: fmt.Sprintf(
				"exchange message from patch %d (%s)", n.DestPatchIx, n.DirOpposing),
			Expected: len(n.recvBuffer),
			Got:      status.Count,
		})
	}
	n.recvCount = status.Count
	return n
}

// WaitSend blocks until every outstanding send has completed.
func (c *Connectivity) WaitSend() {
	comm := c.patch.Grid().Comm()
	comm.WaitAll(c.sendRequests)
	c.sendRequests = c.sendRequests[:0]
}
