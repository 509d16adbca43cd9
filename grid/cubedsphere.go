package grid

// Topology resolves adjacency between panels of the logical manifold. It is
// a total, deterministic description of the manifold's seams: which panel
// lies across each panel edge, how the boundary coordinate runs on the far
// side, and whether the logical axes exchange when crossing.
type Topology interface {
	NumPanels() int

	// OpposingDirection maps a connection leaving panelSrc toward panelDest
	// in the given direction to the direction of the same connection as
	// seen from panelDest, together with the seam's orientation transform:
	// reverse means the shared boundary coordinate runs in the opposite
	// sense on the two panels; swap means the two logical axes exchange.
	OpposingDirection(panelSrc, panelDest int, dir Direction) (opposing Direction, reverse, swap bool, err error)

	// RelocateCoordinate maps a cell coordinate lying outside panelSrc's
	// index range [0, resolution) onto the owning panel's coordinates.
	// valid is false at the manifold's degenerate corner points.
	RelocateCoordinate(panelSrc, resolution, a, b int) (panel, aOut, bOut int, valid bool)
}

// seam describes one directed panel edge crossing.
type seam struct {
	destPanel int
	oppEdge   Direction
	reverse   bool
	swap      bool
}

// CubedSphereTopology is the canonical six-panel manifold: panels 0..3 ring
// the equator west to east, panel 4 caps the north pole and panel 5 the
// south pole.
type CubedSphereTopology struct{}

func (CubedSphereTopology) NumPanels() int { return 6 }

// seams[panel][edge] for the four edge directions of each panel.
var cubedSphereSeams = map[int]map[Direction]seam{
	0: {
		DirRight:  {1, DirLeft, false, false},
		DirLeft:   {3, DirRight, false, false},
		DirTop:    {4, DirBottom, false, false},
		DirBottom: {5, DirTop, false, false},
	},
	1: {
		DirRight:  {2, DirLeft, false, false},
		DirLeft:   {0, DirRight, false, false},
		DirTop:    {4, DirRight, false, true},
		DirBottom: {5, DirRight, true, true},
	},
	2: {
		DirRight:  {3, DirLeft, false, false},
		DirLeft:   {1, DirRight, false, false},
		DirTop:    {4, DirTop, true, false},
		DirBottom: {5, DirBottom, true, false},
	},
	3: {
		DirRight:  {0, DirLeft, false, false},
		DirLeft:   {2, DirRight, false, false},
		DirTop:    {4, DirLeft, true, true},
		DirBottom: {5, DirLeft, false, true},
	},
	4: {
		DirBottom: {0, DirTop, false, false},
		DirRight:  {1, DirTop, false, true},
		DirTop:    {2, DirTop, true, false},
		DirLeft:   {3, DirTop, true, true},
	},
	5: {
		DirTop:    {0, DirBottom, false, false},
		DirRight:  {1, DirBottom, true, true},
		DirBottom: {2, DirBottom, true, false},
		DirLeft:   {3, DirBottom, false, true},
	},
}

// edgeTangent returns the unit vector along an edge's boundary coordinate.
func edgeTangent(edge Direction) (int, int) {
	switch edge {
	case DirTop, DirBottom:
		return 1, 0
	case DirLeft, DirRight:
		return 0, 1
	}
	return 0, 0
}

// seamTransform builds the 2x2 orthogonal map taking source-panel axis
// vectors to destination-panel axis vectors across the given seam edge.
func seamTransform(edge Direction, s seam) (m [2][2]int) {
	// The outward normal of the source edge maps to the inward normal of
	// the destination edge.
	na, nb := edge.Vector()
	oa, ob := s.oppEdge.Vector()
	// Tangents map with or without reversal.
	ta, tb := edgeTangent(edge)
	ua, ub := edgeTangent(s.oppEdge)
	if s.reverse {
		ua, ub = -ua, -ub
	}
	// Columns of m are the images of the source unit vectors e_a, e_b.
	// n and t are axis-aligned, so each source axis is one of them.
	assign := func(srcA, srcB, imgA, imgB int) {
		if srcA != 0 {
			m[0][0], m[1][0] = imgA*srcA, imgB*srcA
		} else {
			m[0][1], m[1][1] = imgA*srcB, imgB*srcB
		}
	}
	assign(na, nb, -oa, -ob)
	assign(ta, tb, ua, ub)
	return m
}

func (t CubedSphereTopology) OpposingDirection(
	panelSrc, panelDest int,
	dir Direction,
) (Direction, bool, bool, error) {
	if panelSrc < 0 || panelSrc >= t.NumPanels() ||
		panelDest < 0 || panelDest >= t.NumPanels() ||
		dir >= DirUnreachable {
		return DirUnreachable, false, false,
			&TopologyError{SourcePanel: panelSrc, DestPanel: panelDest, Dir: dir}
	}

	// Within a panel the opposing direction is the mirror image and the
	// coordinate frames agree.
	if panelSrc == panelDest {
		da, db := dir.Vector()
		return directionFromVector(-da, -db), false, false, nil
	}

	// Locate the seam joining the two panels. On the cubed sphere each
	// ordered panel pair shares at most one edge.
	var (
		edge  Direction
		sm    seam
		found bool
	)
	for e, s := range cubedSphereSeams[panelSrc] {
		if s.destPanel == panelDest {
			edge, sm, found = e, s, true
			break
		}
	}
	if !found {
		return DirUnreachable, false, false,
			&TopologyError{SourcePanel: panelSrc, DestPanel: panelDest, Dir: dir}
	}

	m := seamTransform(edge, sm)
	da, db := dir.Vector()
	ia := m[0][0]*da + m[0][1]*db
	ib := m[1][0]*da + m[1][1]*db
	opposing := directionFromVector(-ia, -ib)
	if opposing == DirUnreachable {
		return DirUnreachable, false, false,
			&TopologyError{SourcePanel: panelSrc, DestPanel: panelDest, Dir: dir}
	}
	return opposing, sm.reverse, sm.swap, nil
}

func (t CubedSphereTopology) RelocateCoordinate(
	panelSrc, resolution, a, b int,
) (int, int, int, bool) {
	aLow, aHigh := a < 0, a >= resolution
	bLow, bHigh := b < 0, b >= resolution

	// Inside the panel: nothing to do.
	if !aLow && !aHigh && !bLow && !bHigh {
		return panelSrc, a, b, true
	}

	// Outside along both axes: the point sits at one of the eight cube
	// vertices, where three panels meet and no cell exists.
	if (aLow || aHigh) && (bLow || bHigh) {
		return 0, 0, 0, false
	}

	var edge Direction
	var s, depth int
	switch {
	case aLow:
		edge, s, depth = DirLeft, b, -1-a
	case aHigh:
		edge, s, depth = DirRight, b, a-resolution
	case bLow:
		edge, s, depth = DirBottom, a, -1-b
	default:
		edge, s, depth = DirTop, a, b-resolution
	}

	sm, ok := cubedSphereSeams[panelSrc][edge]
	if !ok {
		return 0, 0, 0, false
	}
	if sm.reverse {
		s = resolution - 1 - s
	}
	switch sm.oppEdge {
	case DirBottom:
		return sm.destPanel, s, depth, true
	case DirTop:
		return sm.destPanel, s, resolution - 1 - depth, true
	case DirLeft:
		return sm.destPanel, depth, s, true
	case DirRight:
		return sm.destPanel, resolution - 1 - depth, s, true
	}
	return 0, 0, 0, false
}
