package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCubedSphere_SeamTables(t *testing.T) {
	topo := CubedSphereTopology{}
	{ // Test that every seam has a symmetric partner on the far panel
		for panel, edges := range cubedSphereSeams {
			for edge, s := range edges {
				back, ok := cubedSphereSeams[s.destPanel][s.oppEdge]
				assert.True(t, ok)
				assert.Equal(t, panel, back.destPanel)
				assert.Equal(t, edge, back.oppEdge)
				assert.Equal(t, s.reverse, back.reverse)
				assert.Equal(t, s.swap, back.swap)
			}
		}
	}
	{ // Test resolver totality and involution across every seam
		for panel, edges := range cubedSphereSeams {
			for _, s := range edges {
				for dir := DirBottomLeft; dir < DirUnreachable; dir++ {
					opp, rev, swap, err := topo.OpposingDirection(panel, s.destPanel, dir)
					assert.NoError(t, err)
					assert.NotEqual(t, DirUnreachable, opp)

					back, rev2, swap2, err := topo.OpposingDirection(s.destPanel, panel, opp)
					assert.NoError(t, err)
					assert.Equal(t, dir, back)
					assert.Equal(t, rev, rev2)
					assert.Equal(t, swap, swap2)
				}
			}
		}
	}
	{ // Test same panel mirroring
		opp, rev, swap, err := topo.OpposingDirection(2, 2, DirTopLeft)
		assert.NoError(t, err)
		assert.Equal(t, DirBottomRight, opp)
		assert.False(t, rev)
		assert.False(t, swap)
	}
	{ // Test that non-adjacent panel pairs are rejected
		for _, pair := range [][2]int{{0, 2}, {1, 3}, {4, 5}} {
			_, _, _, err := topo.OpposingDirection(pair[0], pair[1], DirRight)
			assert.Error(t, err)
			assert.IsType(t, &TopologyError{}, err)
		}
	}
	{ // Test known orientation flags
		opp, rev, swap, err := topo.OpposingDirection(2, 4, DirTop)
		assert.NoError(t, err)
		assert.Equal(t, DirTop, opp)
		assert.True(t, rev)
		assert.False(t, swap)

		opp, rev, swap, err = topo.OpposingDirection(1, 4, DirTop)
		assert.NoError(t, err)
		assert.Equal(t, DirRight, opp)
		assert.False(t, rev)
		assert.True(t, swap)
	}
}

func TestCubedSphere_RelocateCoordinate(t *testing.T) {
	var (
		topo = CubedSphereTopology{}
		res  = 4
	)
	{ // Test relocation round trips: crossing a seam, reflecting across the
		// far edge and crossing back must land on the source cell's interior
		// mirror. This pins the seam orientation without assuming anything
		// about the relocation formulas themselves.
		type crossing struct {
			edge   Direction
			a, b   int // exterior cell, depth 0
			ma, mb int // its interior mirror across the edge
		}
		for panel := 0; panel < topo.NumPanels(); panel++ {
			for s := 0; s < res; s++ {
				crossings := []crossing{
					{DirBottom, s, -1, s, 0},
					{DirTop, s, res, s, res - 1},
					{DirLeft, -1, s, 0, s},
					{DirRight, res, s, res - 1, s},
				}
				for _, pr := range crossings {
					destPanel, da, db, valid :=
						topo.RelocateCoordinate(panel, res, pr.a, pr.b)
					assert.True(t, valid)
					assert.True(t, da >= 0 && da < res && db >= 0 && db < res)

					seam := cubedSphereSeams[panel][pr.edge]
					assert.Equal(t, seam.destPanel, destPanel)

					// Step across the far edge and relocate back.
					oa, ob := seam.oppEdge.Vector()
					backPanel, ba, bb, valid :=
						topo.RelocateCoordinate(destPanel, res, da+oa, db+ob)
					assert.True(t, valid)
					assert.Equal(t, panel, backPanel)
					assert.Equal(t, pr.ma, ba)
					assert.Equal(t, pr.mb, bb)
				}
			}
		}
	}
	{ // Test interior points are returned unchanged
		destPanel, da, db, valid := topo.RelocateCoordinate(3, res, 1, 2)
		assert.True(t, valid)
		assert.Equal(t, 3, destPanel)
		assert.Equal(t, 1, da)
		assert.Equal(t, 2, db)
	}
	{ // Test degenerate cube corners are invalid
		for _, cell := range [][2]int{{-1, -1}, {-1, res}, {res, -1}, {res, res}} {
			_, _, _, valid := topo.RelocateCoordinate(0, res, cell[0], cell[1])
			assert.False(t, valid)
		}
	}
	{ // Test deeper halo cells relocate consistently too
		for depth := 1; depth < 3; depth++ {
			destPanel, da, db, valid := topo.RelocateCoordinate(0, res, 1, -1-depth)
			assert.True(t, valid)
			assert.Equal(t, 5, destPanel)
			assert.Equal(t, 1, da)
			assert.Equal(t, res-1-depth, db)
		}
	}
}
