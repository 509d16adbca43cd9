package grid

import (
	"fmt"
	"math"
)

// GridPatch is one rectangular region of a panel. A patch is created as a
// stub holding only its box and connectivity; InitializeDataLocal turns it
// into an active patch carrying field storage, and DeinitializeData returns
// it to a stub. Remote patches stay stubs for the lifetime of the run.
type GridPatch struct {
	grid      *Grid
	index     int
	processor int
	box       *PatchBox
	conn      *Connectivity

	containsData bool

	stateNode  []*GridData4D
	stateREdge []*GridData4D

	refStateNode  *GridData4D
	refStateREdge *GridData4D

	tracers []*GridData4D

	pressure    *GridData3D
	vorticity   *GridData3D
	divergence  *GridData3D
	temperature *GridData3D

	topography      *GridData2D
	topographyDeriv *GridData3D
	rayleighNode    *GridData3D
	rayleighREdge   *GridData3D

	elementArea *GridData3D
	longitude   *GridData2D
	latitude    *GridData2D
}

func NewGridPatch(grid *Grid, index int, box *PatchBox) *GridPatch {
	p := &GridPatch{
		grid:  grid,
		index: index,
		box:   box,
	}
	p.conn = NewConnectivity(p)
	return p
}

func (p *GridPatch) Grid() *Grid                { return p.grid }
func (p *GridPatch) Index() int                 { return p.index }
func (p *GridPatch) Processor() int             { return p.processor }
func (p *GridPatch) Box() *PatchBox             { return p.box }
func (p *GridPatch) Connectivity() *Connectivity { return p.conn }
func (p *GridPatch) ContainsData() bool         { return p.containsData }

func (p *GridPatch) checkData() {
	if !p.containsData {
		panic(&StateError{Msg: fmt.Sprintf(
			"patch %d: operation requires initialized data", p.index)})
	}
}

// InitializeDataLocal allocates field storage on this patch, making it an
// active patch on the calling process.
func (p *GridPatch) InitializeDataLocal() {
	if p.containsData {
		panic(&StateError{Msg: fmt.Sprintf(
			"patch %d: data already initialized", p.index)})
	}

	var (
		model    = p.grid.Model()
		eqSet    = model.GetEquationSet()
		nr       = p.grid.RElements()
		na       = p.box.ATotalWidth()
		nb       = p.box.BTotalWidth()
		nNode    = p.grid.VarsAtLocation(DataLocation_Node)
		nREdge   = p.grid.VarsAtLocation(DataLocation_REdge)
		nTracers = eqSet.Tracers
	)

	p.stateNode = make([]*GridData4D, model.GetComponentDataInstances())
	p.stateREdge = make([]*GridData4D, model.GetComponentDataInstances())
	for m := range p.stateNode {
		p.stateNode[m] = NewGridData4D(DataType_State, DataLocation_Node, nNode, nr, na, nb)
		p.stateREdge[m] = NewGridData4D(DataType_State, DataLocation_REdge, nREdge, nr+1, na, nb)
	}

	p.refStateNode = NewGridData4D(DataType_RefState, DataLocation_Node, nNode, nr, na, nb)
	p.refStateREdge = NewGridData4D(DataType_RefState, DataLocation_REdge, nREdge, nr+1, na, nb)

	p.tracers = make([]*GridData4D, model.GetTracerDataInstances())
	for m := range p.tracers {
		p.tracers[m] = NewGridData4D(DataType_Tracers, DataLocation_Node, nTracers, nr, na, nb)
	}

	p.pressure = NewGridData3D(DataType_Pressure, DataLocation_Node, nr, na, nb)
	p.vorticity = NewGridData3D(DataType_Vorticity, DataLocation_Node, nr, na, nb)
	p.divergence = NewGridData3D(DataType_Divergence, DataLocation_Node, nr, na, nb)
	p.temperature = NewGridData3D(DataType_Temperature, DataLocation_Node, nr, na, nb)

	p.topography = NewGridData2D(DataType_Topography, na, nb)
	// Two components: the alpha and beta derivatives of surface height.
	p.topographyDeriv = NewGridData3D(DataType_TopographyDeriv, DataLocation_Node, 2, na, nb)
	p.rayleighNode = NewGridData3D(DataType_RayleighStrength, DataLocation_Node, nr, na, nb)
	p.rayleighREdge = NewGridData3D(DataType_RayleighStrength, DataLocation_REdge, nr+1, na, nb)

	p.elementArea = NewGridData3D(DataType_None, DataLocation_Node, nr, na, nb)
	for i := range p.elementArea.Data {
		p.elementArea.Data[i] = 1.0
	}

	p.longitude = NewGridData2D(DataType_None, na, nb)
	p.latitude = NewGridData2D(DataType_None, na, nb)
	p.initializeCoordinates()

	p.containsData = true
}

// InitializeDataRemote records the owning process of this patch. If the
// patch held local data, the data is released; a later InitializeDataLocal
// reallocates storage for patches this process ends up owning.
func (p *GridPatch) InitializeDataRemote(processor int) {
	p.processor = processor
	if p.containsData {
		p.DeinitializeData()
	}
}

// DeinitializeData releases field storage, returning the patch to a stub.
func (p *GridPatch) DeinitializeData() {
	if !p.containsData {
		panic(&StateError{
			Msg: fmt.Sprintf("patch %d: deinitializing a stub patch", p.index),
		})
	}
	p.stateNode = nil
	p.stateREdge = nil
	p.refStateNode = nil
	p.refStateREdge = nil
	p.tracers = nil
	p.pressure = nil
	p.vorticity = nil
	p.divergence = nil
	p.temperature = nil
	p.topography = nil
	p.topographyDeriv = nil
	p.rayleighNode = nil
	p.rayleighREdge = nil
	p.elementArea = nil
	p.longitude = nil
	p.latitude = nil
	p.containsData = false
}

func (p *GridPatch) initializeCoordinates() {
	var (
		panel  = p.box.Panel()
		aNodes = p.box.ANodes()
		bNodes = p.box.BNodes()
	)
	for i, a := range aNodes {
		for j, b := range bNodes {
			lon, lat := PanelCoordToLonLat(panel, a, b)
			p.longitude.Data[p.longitude.Index(i, j)] = lon
			p.latitude.Data[p.latitude.Index(i, j)] = lat
		}
	}
}

// PanelCoordToLonLat converts an equiangular panel coordinate to spherical
// longitude and latitude in radians.
func PanelCoordToLonLat(panel int, a, b float64) (lon, lat float64) {
	gx := math.Tan(a)
	gy := math.Tan(b)
	switch panel {
	case 0, 1, 2, 3:
		lon = a + float64(panel)*0.5*math.Pi
		lat = math.Atan(gy / math.Sqrt(1.0+gx*gx))
	case 4:
		lon = math.Atan2(gx, -gy)
		lat = 0.5*math.Pi - math.Atan(math.Sqrt(gx*gx+gy*gy))
	case 5:
		lon = math.Atan2(gx, gy)
		lat = math.Atan(math.Sqrt(gx*gx+gy*gy)) - 0.5*math.Pi
	}
	if lon < 0.0 {
		lon += 2.0 * math.Pi
	}
	return lon, lat
}

// Accessors for field storage. All require initialized data.

func (p *GridPatch) StateNode(instance int) *GridData4D {
	p.checkData()
	return p.stateNode[instance]
}

func (p *GridPatch) StateREdge(instance int) *GridData4D {
	p.checkData()
	return p.stateREdge[instance]
}

func (p *GridPatch) RefStateNode() *GridData4D {
	p.checkData()
	return p.refStateNode
}

func (p *GridPatch) RefStateREdge() *GridData4D {
	p.checkData()
	return p.refStateREdge
}

func (p *GridPatch) Tracers(instance int) *GridData4D {
	p.checkData()
	return p.tracers[instance]
}

func (p *GridPatch) Topography() *GridData2D {
	p.checkData()
	return p.topography
}

func (p *GridPatch) TopographyDeriv() *GridData3D {
	p.checkData()
	return p.topographyDeriv
}

func (p *GridPatch) RayleighStrengthNode() *GridData3D {
	p.checkData()
	return p.rayleighNode
}

func (p *GridPatch) Longitude() *GridData2D {
	p.checkData()
	return p.longitude
}

func (p *GridPatch) Latitude() *GridData2D {
	p.checkData()
	return p.latitude
}

// GetTotalDegreesOfFreedom reports the storage size of one data kind on
// this patch, including halo regions.
func (p *GridPatch) GetTotalDegreesOfFreedom(t DataType, loc DataLocation) int {
	var (
		nodes2D = p.box.TotalNodes()
		nr      = p.grid.RElements()
		eqSet   = p.grid.Model().GetEquationSet()
		nNode   = p.grid.VarsAtLocation(DataLocation_Node)
		nREdge  = p.grid.VarsAtLocation(DataLocation_REdge)
	)

	switch t {
	case DataType_State, DataType_RefState:
		switch loc {
		case DataLocation_None:
			return nodes2D * (nNode*nr + nREdge*(nr+1))
		case DataLocation_Node:
			return nodes2D * nr * nNode
		case DataLocation_REdge:
			return nodes2D * (nr + 1) * nREdge
		}

	case DataType_Tracers:
		if loc == DataLocation_None || loc == DataLocation_Node {
			return nodes2D * nr * eqSet.Tracers
		}

	case DataType_Topography:
		if loc == DataLocation_None || loc == DataLocation_Node {
			return nodes2D
		}

	case DataType_TopographyDeriv:
		if loc == DataLocation_None || loc == DataLocation_Node {
			return 2 * nodes2D
		}

	case DataType_RayleighStrength:
		switch loc {
		case DataLocation_None, DataLocation_Node:
			return nodes2D * nr
		case DataLocation_REdge:
			return nodes2D * (nr + 1)
		}
	}

	panic(&ConfigurationError{Msg: fmt.Sprintf(
		"invalid degrees of freedom query: %s at %s", t, loc)})
}

// PrepareExchange posts receive requests for a subsequent halo exchange.
func (p *GridPatch) PrepareExchange() {
	p.checkData()
	p.conn.PrepareExchange()
}

// Send packs one data kind into per-neighbor buffers and ships them.
func (p *GridPatch) Send(t DataType, instance int) {
	p.checkData()
	for _, n := range p.conn.Neighbors() {
		switch t {
		case DataType_State:
			p.checkInstance(instance, len(p.stateNode))
			n.packData4D(p.stateNode[instance])
			n.packData4D(p.stateREdge[instance])
		case DataType_RefState:
			n.packData4D(p.refStateNode)
			n.packData4D(p.refStateREdge)
		case DataType_Tracers:
			p.checkInstance(instance, len(p.tracers))
			n.packData4D(p.tracers[instance])
		case DataType_Pressure:
			n.packData3D(p.pressure)
		case DataType_Vorticity:
			n.packData3D(p.vorticity)
		case DataType_Divergence:
			n.packData3D(p.divergence)
		case DataType_Temperature:
			n.packData3D(p.temperature)
		default:
			panic(&ConfigurationError{Msg: fmt.Sprintf(
				"invalid data type for exchange: %s", t)})
		}
	}
	p.conn.Send()
}

// Receive drains incoming halo messages, unpacking each into this patch's
// halo cells as it arrives.
func (p *GridPatch) Receive(t DataType, instance int) {
	p.checkData()
	for {
		n := p.conn.WaitReceive()
		if n == nil {
			break
		}
		switch t {
		case DataType_State:
			p.checkInstance(instance, len(p.stateNode))
			n.unpackData4D(p.stateNode[instance])
			n.unpackData4D(p.stateREdge[instance])
		case DataType_RefState:
			n.unpackData4D(p.refStateNode)
			n.unpackData4D(p.refStateREdge)
		case DataType_Tracers:
			p.checkInstance(instance, len(p.tracers))
			n.unpackData4D(p.tracers[instance])
		case DataType_Pressure:
			n.unpackData3D(p.pressure)
		case DataType_Vorticity:
			n.unpackData3D(p.vorticity)
		case DataType_Divergence:
			n.unpackData3D(p.divergence)
		case DataType_Temperature:
			n.unpackData3D(p.temperature)
		default:
			panic(&ConfigurationError{Msg: fmt.Sprintf(
				"invalid data type for exchange: %s", t)})
		}
		n.validateReceive()
	}
}

// CompleteExchange blocks until outstanding sends finish, after which the
// send buffers may be reused.
func (p *GridPatch) CompleteExchange() {
	p.checkData()
	p.conn.WaitSend()
}

func (p *GridPatch) checkInstance(instance, count int) {
	if instance < 0 || instance >= count {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data instance %d (have %d)", instance, count)})
	}
}

// CopyData copies state or tracer data between instances.
func (p *GridPatch) CopyData(ixSource, ixDest int, t DataType) {
	p.checkData()
	switch t {
	case DataType_State:
		p.stateNode[ixDest].CopyFrom(p.stateNode[ixSource])
		p.stateREdge[ixDest].CopyFrom(p.stateREdge[ixSource])
	case DataType_Tracers:
		p.tracers[ixDest].CopyFrom(p.tracers[ixSource])
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data type for copy: %s", t)})
	}
}

// LinearCombineData overwrites instance ixDest with the linear combination
// of instances given by coeff.
func (p *GridPatch) LinearCombineData(coeff []float64, ixDest int, t DataType) {
	p.checkData()
	switch t {
	case DataType_State:
		linearCombine4D(coeff, ixDest, p.stateNode)
		linearCombine4D(coeff, ixDest, p.stateREdge)
	case DataType_Tracers:
		linearCombine4D(coeff, ixDest, p.tracers)
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data type for linear combination: %s", t)})
	}
}

func linearCombine4D(coeff []float64, ixDest int, data []*GridData4D) {
	if len(coeff) > len(data) {
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"linear combination over %d instances (have %d)", len(coeff), len(data))})
	}
	data[ixDest].Scale(coeff[ixDest])
	for m, c := range coeff {
		if m == ixDest || c == 0.0 {
			continue
		}
		data[ixDest].AddProduct(data[m], c)
	}
}

// ZeroData zeroes one instance of state or tracer data.
func (p *GridPatch) ZeroData(ixData int, t DataType) {
	p.checkData()
	switch t {
	case DataType_State:
		p.stateNode[ixData].Zero()
		p.stateREdge[ixData].Zero()
	case DataType_Tracers:
		p.tracers[ixData].Zero()
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data type for zero: %s", t)})
	}
}

// AddReferenceState adds the reference state onto one state instance.
func (p *GridPatch) AddReferenceState(ix int) {
	p.checkData()
	p.stateNode[ix].AddProduct(p.refStateNode, 1.0)
	p.stateREdge[ix].AddProduct(p.refStateREdge, 1.0)
}

// InterpolateNodeToREdge is reserved for vertically staggered grids.
func (p *GridPatch) InterpolateNodeToREdge(iVar, iDataIndex int) {
	panic(&UnimplementedError{Op: "GridPatch.InterpolateNodeToREdge"})
}

// InterpolateREdgeToNode is reserved for vertically staggered grids.
func (p *GridPatch) InterpolateREdgeToNode(iVar, iDataIndex int) {
	panic(&UnimplementedError{Op: "GridPatch.InterpolateREdgeToNode"})
}

// ExteriorConnect adds a connection spanning a full patch edge or a true
// patch corner. dest may be nil, in which case no connection is made.
func (p *GridPatch) ExteriorConnect(dir Direction, dest *GridPatch) {
	var ixFirst, ixSecond int
	switch dir {
	case DirRight, DirLeft:
		ixFirst = p.box.BInteriorBegin()
		ixSecond = p.box.BInteriorEnd()
	case DirTop, DirBottom:
		ixFirst = p.box.AInteriorBegin()
		ixSecond = p.box.AInteriorEnd()
	case DirTopRight:
		ixFirst = p.box.AInteriorEnd() - 1
		ixSecond = p.box.BInteriorEnd() - 1
	case DirTopLeft:
		ixFirst = p.box.AInteriorBegin()
		ixSecond = p.box.BInteriorEnd() - 1
	case DirBottomLeft:
		ixFirst = p.box.AInteriorBegin()
		ixSecond = p.box.BInteriorBegin()
	case DirBottomRight:
		ixFirst = p.box.AInteriorEnd() - 1
		ixSecond = p.box.BInteriorBegin()
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid connection direction: %s", dir)})
	}
	p.ExteriorConnectSpan(dir, dest, ixFirst, ixSecond)
}

// ExteriorConnectSpan adds a connection toward dest. For edge directions
// ixFirst and ixSecond bound the tangential run [ixFirst, ixSecond) in
// local indices; for corner directions they give the local anchor cell.
func (p *GridPatch) ExteriorConnectSpan(dir Direction, dest *GridPatch, ixFirst, ixSecond int) {
	if dest == nil {
		return
	}

	var (
		mdl   = p.grid.Model()
		eqSet = mdl.GetEquationSet()
		h     = mdl.GetHaloElements()
		nr    = p.grid.RElements()
	)

	maxVars := eqSet.Components
	if eqSet.Tracers > maxVars {
		maxVars = eqSet.Tracers
	}

	opposing, reverse, swap, err := p.grid.Topology().OpposingDirection(
		p.box.Panel(), dest.Box().Panel(), dir)
	if err != nil {
		panic(err)
	}

	size := h
	if !dir.IsCorner() {
		size = ixSecond - ixFirst
	}

	// Corner connections pack an interior block of size x size cells; the
	// anchor must sit far enough from the opposite patch boundaries.
	insufficient := false
	switch dir {
	case DirTopRight:
		insufficient = ixFirst < p.box.AInteriorBegin()+size-1 ||
			ixSecond < p.box.BInteriorBegin()+size-1
	case DirTopLeft:
		insufficient = ixFirst > p.box.AInteriorEnd()-size ||
			ixSecond < p.box.BInteriorBegin()+size-1
	case DirBottomLeft:
		insufficient = ixFirst > p.box.AInteriorEnd()-size ||
			ixSecond > p.box.BInteriorEnd()-size
	case DirBottomRight:
		insufficient = ixFirst < p.box.AInteriorBegin()+size-1 ||
			ixSecond > p.box.BInteriorEnd()-size
	}
	if insufficient {
		panic(&ConfigurationError{
			Msg: "insufficient interior elements to build diagonal connection",
		})
	}

	n := &ExteriorNeighbor{
		Dir:         dir,
		DirOpposing: opposing,
		Reverse:     reverse,
		Swap:        swap,
		DestPatchIx: dest.Index(),
		DestRank:    dest.Processor(),
		IxFirst:     ixFirst,
		IxSecond:    ixSecond,
	}

	// Corner messages carry anchor keys so that a true corner and a
	// bridging corner toward the same neighbor get distinct tags. The
	// send key is the first packed cell in this panel's frame; the
	// receive key relocates the first halo cell to its owner's frame,
	// which is the same physical cell the peer packs first.
	if dir.IsCorner() {
		var (
			res = p.grid.BaseResolution(p.box.RefinementLevel())
			ga  = p.box.AGlobalInteriorBegin() + ixFirst - p.box.AInteriorBegin()
			gb  = p.box.BGlobalInteriorBegin() + ixSecond - p.box.BInteriorBegin()
		)
		n.sendKey = 1 + ga*res + gb
		ua, va := -1, -1
		switch dir {
		case DirBottomRight:
			ua = 1
		case DirTopRight:
			ua, va = 1, 1
		case DirTopLeft:
			va = 1
		}
		if _, da, db, ok := p.grid.Topology().RelocateCoordinate(
			p.box.Panel(), res, ga+ua, gb+va); ok {
			n.recvKey = 1 + da*res + db
		}
	}

	p.conn.addNeighbor(n)
	n.allocateBuffers(maxVars, nr, h)
}

// accumulateChecksum folds this patch's interior cells into the running
// per-component checksum values.
func (p *GridPatch) accumulateChecksum(t DataType, ct ChecksumType, sums []float64) {
	p.checkData()

	accumulate := func(base int, nc, nr int, d *GridData4D) {
		for c := 0; c < nc; c++ {
			for k := 0; k < nr; k++ {
				for i := p.box.AInteriorBegin(); i < p.box.AInteriorEnd(); i++ {
					for j := p.box.BInteriorBegin(); j < p.box.BInteriorEnd(); j++ {
						var (
							v    = d.Data[d.Index(c, k, i, j)]
							area = p.elementArea.Data[p.elementArea.Index(
								min(k, p.elementArea.NR-1), i, j)]
						)
						switch ct {
						case ChecksumSum:
							sums[base+c] += v * area
						case ChecksumL1:
							sums[base+c] += math.Abs(v) * area
						case ChecksumL2:
							sums[base+c] += v * v * area
						case ChecksumLinf:
							if a := math.Abs(v); a > sums[base+c] {
								sums[base+c] = a
							}
						}
					}
				}
			}
		}
	}

	switch t {
	case DataType_State:
		var (
			nNode = p.stateNode[0].NC
			d     = p.stateNode[0]
		)
		accumulate(0, nNode, d.NR, d)
		e := p.stateREdge[0]
		accumulate(nNode, e.NC, e.NR, e)
	case DataType_Tracers:
		d := p.tracers[0]
		accumulate(0, d.NC, d.NR, d)
	default:
		panic(&ConfigurationError{Msg: fmt.Sprintf(
			"invalid data type for checksum: %s", t)})
	}
}
