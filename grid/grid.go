package grid

import (
	"fmt"
	"math"

	"github.com/CliMA/tempestmodel/model"
	"github.com/CliMA/tempestmodel/mpi"
)

// InvalidIndex marks a missing patch reference.
const InvalidIndex = -1

// ChecksumType selects the reduction applied by Grid.Checksum.
type ChecksumType int

const (
	ChecksumSum ChecksumType = iota
	ChecksumL1
	ChecksumL2
	ChecksumLinf
)

// Grid is the distributed mesh: the full roster of patches across all
// processes, the subset of patches active on this process, and the machinery
// for building connectivity and exchanging halo data between patches.
type Grid struct {
	model *model.Model
	topo  Topology
	comm  mpi.Transport

	patches       []*GridPatch
	activePatches []*GridPatch

	// cumulative2DNodeIndex[i] is the number of interior nodes in patches
	// [0, i); the final entry holds the grid total.
	cumulative2DNodeIndex []int

	baseResolution  int
	refinementRatio int
	rElements       int

	gridStamp               int
	initializedConnectivity bool

	varLocation    []DataLocation
	varsAtLocation [DataLocation_Count]int
	varIndex       []int
}

// NewGrid builds an empty grid over the given topology. baseResolution is
// the number of cells along one panel edge at refinement level zero.
func NewGrid(
	m *model.Model,
	topo Topology,
	comm mpi.Transport,
	baseResolution int,
	refinementRatio int,
	rElements int,
) (*Grid, error) {
	if baseResolution < 1 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf(
			"invalid base resolution %d", baseResolution)}
	}
	if refinementRatio < 1 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf(
			"invalid refinement ratio %d", refinementRatio)}
	}
	if rElements < 1 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf(
			"invalid vertical element count %d", rElements)}
	}

	g := &Grid{
		model:                 m,
		topo:                  topo,
		comm:                  comm,
		baseResolution:        baseResolution,
		refinementRatio:       refinementRatio,
		rElements:             rElements,
		cumulative2DNodeIndex: []int{0},
	}
	g.initializeVerticalStaggering()
	return g, nil
}

// initializeVerticalStaggering assigns each prognostic component to its
// vertical staggering location. The five-component set places vertical
// velocity and the thermodynamic variable on interfaces (Lorenz staggering);
// smaller sets are colocated on nodes.
func (g *Grid) initializeVerticalStaggering() {
	eqSet := g.model.GetEquationSet()

	g.varLocation = make([]DataLocation, eqSet.Components)
	for c := range g.varLocation {
		g.varLocation[c] = DataLocation_Node
	}
	if eqSet.Components == 5 {
		g.varLocation[2] = DataLocation_REdge
		g.varLocation[3] = DataLocation_REdge
	}

	g.varIndex = make([]int, eqSet.Components)
	for c, loc := range g.varLocation {
		g.varIndex[c] = g.varsAtLocation[loc]
		g.varsAtLocation[loc]++
	}
}

func (g *Grid) Model() *model.Model  { return g.model }
func (g *Grid) Topology() Topology   { return g.topo }
func (g *Grid) Comm() mpi.Transport  { return g.comm }
func (g *Grid) RElements() int       { return g.rElements }
func (g *Grid) HaloElements() int    { return g.model.GetHaloElements() }
func (g *Grid) RefinementRatio() int { return g.refinementRatio }
func (g *Grid) GridStamp() int       { return g.gridStamp }

func (g *Grid) PatchCount() int             { return len(g.patches) }
func (g *Grid) Patch(ix int) *GridPatch     { return g.patches[ix] }
func (g *Grid) ActivePatches() []*GridPatch { return g.activePatches }

func (g *Grid) VarLocation(c int) DataLocation       { return g.varLocation[c] }
func (g *Grid) VarIndex(c int) int                   { return g.varIndex[c] }
func (g *Grid) VarsAtLocation(loc DataLocation) int  { return g.varsAtLocation[loc] }
func (g *Grid) CumulativePatch2DNodeIndex() []int    { return g.cumulative2DNodeIndex }

// BaseResolution reports the panel edge length in cells at the given
// refinement level.
func (g *Grid) BaseResolution(level int) int {
	res := g.baseResolution
	for i := 0; i < level; i++ {
		res *= g.refinementRatio
	}
	return res
}

// AddPatch appends a patch stub to the roster. Patches cannot be added once
// connectivity has been built.
func (g *Grid) AddPatch(box *PatchBox) *GridPatch {
	if g.initializedConnectivity {
		panic(&StateError{Msg: "cannot add patches after connectivity is built"})
	}
	if box.Panel() < 0 || box.Panel() >= g.topo.NumPanels() {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"patch panel %d out of range (topology has %d panels)",
			box.Panel(), g.topo.NumPanels())})
	}
	res := g.BaseResolution(box.RefinementLevel())
	if box.AGlobalInteriorBegin() < 0 || box.AGlobalInteriorEnd() > res ||
		box.BGlobalInteriorBegin() < 0 || box.BGlobalInteriorEnd() > res ||
		box.AInteriorWidth() < 1 || box.BInteriorWidth() < 1 {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"patch box [%d,%d)x[%d,%d) out of range for resolution %d",
			box.AGlobalInteriorBegin(), box.AGlobalInteriorEnd(),
			box.BGlobalInteriorBegin(), box.BGlobalInteriorEnd(), res)})
	}

	p := NewGridPatch(g, len(g.patches), box)
	g.patches = append(g.patches, p)

	last := g.cumulative2DNodeIndex[len(g.cumulative2DNodeIndex)-1]
	g.cumulative2DNodeIndex = append(g.cumulative2DNodeIndex,
		last+box.AInteriorWidth()*box.BInteriorWidth())

	g.gridStamp++
	return p
}

// AddDefaultPatches lays out one patch per panel at refinement level zero.
func (g *Grid) AddDefaultPatches() {
	var (
		res = g.BaseResolution(0)
		h   = g.model.GetHaloElements()
	)
	for panel := 0; panel < g.topo.NumPanels(); panel++ {
		g.AddPatch(EquiangularPatchBox(panel, 0, h, res, 0, res, 0, res))
	}
}

// AddUniformPatches decomposes every panel into perPanelAxis x perPanelAxis
// equal patches at refinement level zero. The base resolution must be
// divisible by perPanelAxis.
func (g *Grid) AddUniformPatches(perPanelAxis int) {
	res := g.BaseResolution(0)
	if perPanelAxis < 1 || res%perPanelAxis != 0 {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"cannot decompose resolution %d into %d patches per axis",
			res, perPanelAxis)})
	}
	var (
		w = res / perPanelAxis
		h = g.model.GetHaloElements()
	)
	for panel := 0; panel < g.topo.NumPanels(); panel++ {
		for pi := 0; pi < perPanelAxis; pi++ {
			for pj := 0; pj < perPanelAxis; pj++ {
				g.AddPatch(EquiangularPatchBox(panel, 0, h, res,
					pi*w, (pi+1)*w, pj*w, (pj+1)*w))
			}
		}
	}
}

// DistributePatches assigns patches to processes round-robin and allocates
// storage for the patches owned by this process.
func (g *Grid) DistributePatches() {
	for _, p := range g.activePatches {
		p.DeinitializeData()
	}
	g.activePatches = g.activePatches[:0]

	var (
		rank = g.comm.Rank()
		size = g.comm.Size()
	)
	for n, p := range g.patches {
		p.InitializeDataRemote(n % size)
		if n%size == rank {
			p.InitializeDataLocal()
			g.activePatches = append(g.activePatches, p)
		}
	}
	g.gridStamp++
}

// GetPatchFromCoordinateIndex resolves a cell coordinate, possibly lying
// beyond its panel's bounds, to the index of the owning patch. It returns
// InvalidIndex at degenerate manifold corners and uncovered cells.
func (g *Grid) GetPatchFromCoordinateIndex(level, panel, a, b int) int {
	res := g.BaseResolution(level)
	destPanel, da, db, valid := g.topo.RelocateCoordinate(panel, res, a, b)
	if !valid {
		return InvalidIndex
	}
	for _, p := range g.patches {
		box := p.Box()
		if box.Panel() == destPanel && box.RefinementLevel() == level &&
			box.ContainsGlobalPoint(da, db) {
			return p.Index()
		}
	}
	return InvalidIndex
}

func (g *Grid) patchOrNil(ix int) *GridPatch {
	if ix == InvalidIndex {
		return nil
	}
	return g.patches[ix]
}

// GetLongestActivePatchPerimeter reports the largest interior perimeter
// among patches active on this process.
func (g *Grid) GetLongestActivePatchPerimeter() int {
	longest := 0
	for _, p := range g.activePatches {
		if per := p.Box().InteriorPerimeter(); per > longest {
			longest = per
		}
	}
	return longest
}

// GetLargestGridPatchNodes reports the largest 2D node count, halo
// included, among all patches in the roster.
func (g *Grid) GetLargestGridPatchNodes() int {
	largest := 0
	for _, p := range g.patches {
		if n := p.Box().TotalNodes(); n > largest {
			largest = n
		}
	}
	return largest
}

// GetTotalNodeCount reports the number of interior nodes over the whole
// roster, counting each global cell exactly once.
func (g *Grid) GetTotalNodeCount() int {
	total := 0
	for _, p := range g.patches {
		total += p.Box().AInteriorWidth() * p.Box().BInteriorWidth()
	}
	return total
}

// GetMaximumDegreesOfFreedom reports the largest single-kind node storage
// of any patch, the bound used to size consolidation receive buffers.
func (g *Grid) GetMaximumDegreesOfFreedom() int {
	max := 0
	for _, p := range g.patches {
		for _, t := range []DataType{
			DataType_State, DataType_Tracers,
			DataType_Topography, DataType_RayleighStrength,
		} {
			if n := p.GetTotalDegreesOfFreedom(t, DataLocation_Node); n > max {
				max = n
			}
		}
	}
	return max
}

// InitializeConnectivity discovers the exterior neighbors of each active
// patch. It walks the ring of exterior cells around the patch interior,
// resolves each to its owning patch, and compresses contiguous runs that
// resolve to the same neighbor into single edge connections. Where an edge
// meets a decomposition boundary of the neighboring panel region, diagonal
// connections are synthesized to bridge corner data across the split.
func (g *Grid) InitializeConnectivity() {
	if g.initializedConnectivity {
		panic(&StateError{Msg: "connectivity already built"})
	}

	for _, p := range g.activePatches {
		var (
			box   = p.Box()
			level = box.RefinementLevel()
			panel = box.Panel()
		)

		// Ring of exterior cells, walked counterclockwise from the
		// bottom-left corner.
		vecPatch := make([]int, 0, box.InteriorPerimeter()+4)
		push := func(a, b int) {
			vecPatch = append(vecPatch,
				g.GetPatchFromCoordinateIndex(level, panel, a, b))
		}

		push(box.AGlobalInteriorBegin()-1, box.BGlobalInteriorBegin()-1)
		for i := box.AGlobalInteriorBegin(); i < box.AGlobalInteriorEnd(); i++ {
			push(i, box.BGlobalInteriorBegin()-1)
		}
		push(box.AGlobalInteriorEnd(), box.BGlobalInteriorBegin()-1)
		for j := box.BGlobalInteriorBegin(); j < box.BGlobalInteriorEnd(); j++ {
			push(box.AGlobalInteriorEnd(), j)
		}
		push(box.AGlobalInteriorEnd(), box.BGlobalInteriorEnd())
		for i := box.AGlobalInteriorEnd() - 1; i >= box.AGlobalInteriorBegin(); i-- {
			push(i, box.BGlobalInteriorEnd())
		}
		push(box.AGlobalInteriorBegin()-1, box.BGlobalInteriorEnd())
		for j := box.BGlobalInteriorEnd() - 1; j >= box.BGlobalInteriorBegin(); j-- {
			push(box.AGlobalInteriorBegin()-1, j)
		}

		if len(vecPatch) != box.InteriorPerimeter()+4 {
			panic(&StateError{Msg: fmt.Sprintf(
				"patch %d: perimeter ring length %d does not match %d",
				p.Index(), len(vecPatch), box.InteriorPerimeter()+4)})
		}

		ix := 0

		// Bottom-left corner
		p.ExteriorConnect(DirBottomLeft, g.patchOrNil(vecPatch[ix]))
		ix++

		// Bottom edge: compress runs of cells resolving to the same
		// neighbor into single connections, bridging corners at splits.
		{
			ixFirstBegin := box.AInteriorBegin()
			current := vecPatch[ix]

			for i := ixFirstBegin; i <= box.AInteriorEnd(); i++ {
				if i == box.AInteriorEnd() || vecPatch[ix] != current {
					below := g.patchOrNil(current)

					p.ExteriorConnectSpan(DirBottom, below, ixFirstBegin, i)

					if i != box.AInteriorEnd() {
						p.ExteriorConnectSpan(DirBottomLeft, below,
							i, box.BInteriorBegin())

						ixFirstBegin = i
						current = vecPatch[ix]
						below = g.patchOrNil(current)

						p.ExteriorConnectSpan(DirBottomRight, below,
							i-1, box.BInteriorBegin())
					}
				}
				if i != box.AInteriorEnd() {
					ix++
				}
			}
		}

		// Bottom-right corner
		p.ExteriorConnect(DirBottomRight, g.patchOrNil(vecPatch[ix]))
		ix++

		// Right edge
		{
			ixFirstBegin := box.BInteriorBegin()
			current := vecPatch[ix]

			for j := ixFirstBegin; j <= box.BInteriorEnd(); j++ {
				if j == box.BInteriorEnd() || vecPatch[ix] != current {
					right := g.patchOrNil(current)

					p.ExteriorConnectSpan(DirRight, right, ixFirstBegin, j)

					if j != box.BInteriorEnd() {
						p.ExteriorConnectSpan(DirBottomRight, right,
							box.AInteriorEnd()-1, j)

						ixFirstBegin = j
						current = vecPatch[ix]
						right = g.patchOrNil(current)

						p.ExteriorConnectSpan(DirTopRight, right,
							box.AInteriorEnd()-1, j-1)
					}
				}
				if j != box.BInteriorEnd() {
					ix++
				}
			}
		}

		// Top-right corner
		p.ExteriorConnect(DirTopRight, g.patchOrNil(vecPatch[ix]))
		ix++

		// Top edge, walked with descending index.
		{
			ixFirstEnd := box.AInteriorEnd()
			current := vecPatch[ix]

			for i := ixFirstEnd - 1; i >= box.AInteriorBegin()-1; i-- {
				if i == box.AInteriorBegin()-1 || vecPatch[ix] != current {
					above := g.patchOrNil(current)

					p.ExteriorConnectSpan(DirTop, above, i+1, ixFirstEnd)

					if i != box.AInteriorBegin()-1 {
						p.ExteriorConnectSpan(DirTopRight, above,
							i, box.BInteriorEnd()-1)

						ixFirstEnd = i + 1
						current = vecPatch[ix]
						above = g.patchOrNil(current)

						p.ExteriorConnectSpan(DirTopLeft, above,
							i+1, box.BInteriorEnd()-1)
					}
				}
				if i != box.AInteriorBegin()-1 {
					ix++
				}
			}
		}

		// Top-left corner
		p.ExteriorConnect(DirTopLeft, g.patchOrNil(vecPatch[ix]))
		ix++

		// Left edge, walked with descending index.
		{
			ixFirstEnd := box.BInteriorEnd()
			current := vecPatch[ix]

			for j := ixFirstEnd - 1; j >= box.BInteriorBegin()-1; j-- {
				if j == box.BInteriorBegin()-1 || vecPatch[ix] != current {
					left := g.patchOrNil(current)

					p.ExteriorConnectSpan(DirLeft, left, j+1, ixFirstEnd)

					if j != box.BInteriorBegin()-1 {
						p.ExteriorConnectSpan(DirTopLeft, left,
							box.AInteriorBegin(), j)

						ixFirstEnd = j + 1
						current = vecPatch[ix]
						left = g.patchOrNil(current)

						p.ExteriorConnectSpan(DirBottomLeft, left,
							box.AInteriorBegin(), j+1)
					}
				}
				if j != box.BInteriorBegin()-1 {
					ix++
				}
			}
		}

		if ix != box.InteriorPerimeter()+4 {
			panic(&StateError{Msg: fmt.Sprintf(
				"patch %d: connectivity walk consumed %d of %d ring entries",
				p.Index(), ix, box.InteriorPerimeter()+4)})
		}
	}

	g.initializedConnectivity = true
	g.gridStamp++
}

// Exchange performs one full halo exchange of the given data kind across
// all active patches.
func (g *Grid) Exchange(t DataType, instance int) {
	if !g.initializedConnectivity {
		panic(&StateError{Msg: "exchange requires connectivity"})
	}

	g.comm.Barrier()

	for _, p := range g.activePatches {
		p.PrepareExchange()
	}
	for _, p := range g.activePatches {
		p.Send(t, instance)
	}
	for _, p := range g.activePatches {
		p.Receive(t, instance)
	}
	for _, p := range g.activePatches {
		p.CompleteExchange()
	}
}

// Checksum computes a per-component global checksum of the given data kind,
// reduced to the root process. Non-root processes receive nil.
func (g *Grid) Checksum(t DataType, ct ChecksumType) []float64 {
	var ncomp int
	switch t {
	case DataType_State:
		ncomp = g.model.GetEquationSet().Components
	case DataType_Tracers:
		ncomp = g.model.GetEquationSet().Tracers
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data type for checksum: %s", t)})
	}

	sums := make([]float64, ncomp)
	for _, p := range g.activePatches {
		p.accumulateChecksum(t, ct, sums)
	}

	op := mpi.OpSum
	if ct == ChecksumLinf {
		op = mpi.OpMax
	}
	result := g.comm.Reduce(op, sums, 0)
	if result != nil && ct == ChecksumL2 {
		for i := range result {
			result[i] = math.Sqrt(result[i])
		}
	}
	return result
}

// CopyData copies between data instances on every active patch.
func (g *Grid) CopyData(ixSource, ixDest int, t DataType) {
	for _, p := range g.activePatches {
		p.CopyData(ixSource, ixDest, t)
	}
}

// LinearCombineData forms a linear combination of data instances on every
// active patch.
func (g *Grid) LinearCombineData(coeff []float64, ixDest int, t DataType) {
	for _, p := range g.activePatches {
		p.LinearCombineData(coeff, ixDest, t)
	}
}

// ZeroData zeroes one data instance on every active patch.
func (g *Grid) ZeroData(ixData int, t DataType) {
	for _, p := range g.activePatches {
		p.ZeroData(ixData, t)
	}
}

// AddReferenceState adds the reference state onto one state instance on
// every active patch.
func (g *Grid) AddReferenceState(ix int) {
	for _, p := range g.activePatches {
		p.AddReferenceState(ix)
	}
}

// GetTotalDegreesOfFreedom reports the storage size of one data kind summed
// over the full patch roster.
func (g *Grid) GetTotalDegreesOfFreedom(t DataType, loc DataLocation) int {
	total := 0
	for _, p := range g.patches {
		total += p.GetTotalDegreesOfFreedom(t, loc)
	}
	return total
}

// ConvertReferenceToPatchCoord is reserved for grids with nontrivial
// reference coordinate maps.
func (g *Grid) ConvertReferenceToPatchCoord(refA, refB []float64) (int, error) {
	return 0, &UnimplementedError{Op: "Grid.ConvertReferenceToPatchCoord"}
}

// InterpolateData is reserved for offline output interpolation.
func (g *Grid) InterpolateData(t DataType, lon, lat []float64) error {
	return &UnimplementedError{Op: "Grid.InterpolateData"}
}
