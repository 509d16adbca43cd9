package grid

import "math"

// PatchBox describes the logical index extent of one patch: its panel,
// refinement level, halo width and interior ranges along the two panel axes,
// in both patch-local and grid-global index space, together with the
// equiangular coordinate arrays of its nodes and edges. A PatchBox is built
// once and never mutated.
type PatchBox struct {
	panel        int
	level        int
	haloElements int

	// Global interior extent [begin, end) along each axis.
	aGlobalBegin, aGlobalEnd int
	bGlobalBegin, bGlobalEnd int

	// Coordinate arrays spanning the total (interior + halo) width.
	aNodes, bNodes []float64
	aEdges, bEdges []float64
}

// NewPatchBox builds a PatchBox from its global interior extent and the
// supplied coordinate arrays. The coordinate arrays must span the total
// width (interior plus two halo margins); edge arrays carry one extra entry.
func NewPatchBox(
	panel, level, haloElements int,
	aGlobalBegin, aGlobalEnd int,
	bGlobalBegin, bGlobalEnd int,
	aNodes, bNodes, aEdges, bEdges []float64,
) *PatchBox {
	return &PatchBox{
		panel:        panel,
		level:        level,
		haloElements: haloElements,
		aGlobalBegin: aGlobalBegin,
		aGlobalEnd:   aGlobalEnd,
		bGlobalBegin: bGlobalBegin,
		bGlobalEnd:   bGlobalEnd,
		aNodes:       aNodes,
		bNodes:       bNodes,
		aEdges:       aEdges,
		bEdges:       bEdges,
	}
}

// EquiangularPatchBox builds a PatchBox with equiangular coordinates for a
// panel of the given resolution, where each panel axis spans [-pi/4, pi/4].
func EquiangularPatchBox(
	panel, level, haloElements int,
	resolution int,
	aGlobalBegin, aGlobalEnd int,
	bGlobalBegin, bGlobalEnd int,
) *PatchBox {
	nodes := func(begin, end int) []float64 {
		total := end - begin + 2*haloElements
		v := make([]float64, total)
		for i := 0; i < total; i++ {
			ix := begin - haloElements + i
			v[i] = -0.25*math.Pi + 0.5*math.Pi*(float64(ix)+0.5)/float64(resolution)
		}
		return v
	}
	edges := func(begin, end int) []float64 {
		total := end - begin + 2*haloElements + 1
		v := make([]float64, total)
		for i := 0; i < total; i++ {
			ix := begin - haloElements + i
			v[i] = -0.25*math.Pi + 0.5*math.Pi*float64(ix)/float64(resolution)
		}
		return v
	}
	return NewPatchBox(
		panel, level, haloElements,
		aGlobalBegin, aGlobalEnd,
		bGlobalBegin, bGlobalEnd,
		nodes(aGlobalBegin, aGlobalEnd),
		nodes(bGlobalBegin, bGlobalEnd),
		edges(aGlobalBegin, aGlobalEnd),
		edges(bGlobalBegin, bGlobalEnd))
}

func (box *PatchBox) Panel() int { return box.panel }

func (box *PatchBox) RefinementLevel() int { return box.level }

func (box *PatchBox) HaloElements() int { return box.haloElements }

// Local interior extent; arrays allocated at total width are indexed so that
// the interior occupies [HaloElements, HaloElements+width).
func (box *PatchBox) AInteriorBegin() int { return box.haloElements }

func (box *PatchBox) AInteriorEnd() int {
	return box.haloElements + box.aGlobalEnd - box.aGlobalBegin
}

func (box *PatchBox) BInteriorBegin() int { return box.haloElements }

func (box *PatchBox) BInteriorEnd() int {
	return box.haloElements + box.bGlobalEnd - box.bGlobalBegin
}

func (box *PatchBox) AGlobalInteriorBegin() int { return box.aGlobalBegin }
func (box *PatchBox) AGlobalInteriorEnd() int   { return box.aGlobalEnd }
func (box *PatchBox) BGlobalInteriorBegin() int { return box.bGlobalBegin }
func (box *PatchBox) BGlobalInteriorEnd() int   { return box.bGlobalEnd }

func (box *PatchBox) AInteriorWidth() int { return box.aGlobalEnd - box.aGlobalBegin }
func (box *PatchBox) BInteriorWidth() int { return box.bGlobalEnd - box.bGlobalBegin }

// ATotalWidth is the interior width plus both halo margins.
func (box *PatchBox) ATotalWidth() int { return box.AInteriorWidth() + 2*box.haloElements }
func (box *PatchBox) BTotalWidth() int { return box.BInteriorWidth() + 2*box.haloElements }

// TotalNodes is the horizontal storage footprint of the patch.
func (box *PatchBox) TotalNodes() int { return box.ATotalWidth() * box.BTotalWidth() }

// InteriorPerimeter counts the grid points along the interior boundary,
// corners excluded.
func (box *PatchBox) InteriorPerimeter() int {
	return 2*box.AInteriorWidth() + 2*box.BInteriorWidth()
}

// ContainsGlobalPoint reports whether the global interior covers (a, b).
func (box *PatchBox) ContainsGlobalPoint(a, b int) bool {
	return a >= box.aGlobalBegin && a < box.aGlobalEnd &&
		b >= box.bGlobalBegin && b < box.bGlobalEnd
}

func (box *PatchBox) ANodes() []float64 { return box.aNodes }
func (box *PatchBox) BNodes() []float64 { return box.bNodes }
func (box *PatchBox) AEdges() []float64 { return box.aEdges }
func (box *PatchBox) BEdges() []float64 { return box.bEdges }
