package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CliMA/tempestmodel/model"
	"github.com/CliMA/tempestmodel/mpi"
)

// newSerialGrid builds a grid over a single-process cluster so every patch
// is active locally.
func newSerialGrid(t *testing.T, resolution, haloElements, rElements int) *Grid {
	t.Helper()
	var (
		eqSet = model.NewEquationSet(model.ShallowWaterEquations, 0)
		mdl   = model.NewModel(eqSet, haloElements)
		comm  = mpi.NewCluster(1).Comm(0)
	)
	g, err := NewGrid(mdl, CubedSphereTopology{}, comm, resolution, 2, rElements)
	assert.NoError(t, err)
	return g
}

// assertPanicsType asserts that fn panics with a value of the same type as
// want.
func assertPanicsType(t *testing.T, want interface{}, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		assert.NotNil(t, r)
		assert.IsType(t, want, r)
	}()
	fn()
}

// neighborsByDir filters a patch's connections by direction.
func neighborsByDir(p *GridPatch, dir Direction) (out []*ExteriorNeighbor) {
	for _, n := range p.Connectivity().Neighbors() {
		if n.Dir == dir {
			out = append(out, n)
		}
	}
	return out
}
