package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CliMA/tempestmodel/model"
	"github.com/CliMA/tempestmodel/mpi"
)

func TestPatch_Lifecycle(t *testing.T) {
	{ // Test stub patches reject data operations
		var (
			eqSet = model.NewEquationSet(model.ShallowWaterEquations, 0)
			mdl   = model.NewModel(eqSet, 1)
			comm  = mpi.NewCluster(2).Comm(0)
		)
		g, err := NewGrid(mdl, CubedSphereTopology{}, comm, 4, 2, 2)
		assert.NoError(t, err)
		g.AddDefaultPatches()
		g.DistributePatches()

		// With two processes, odd patches are remote stubs here.
		stub := g.Patch(1)
		assert.False(t, stub.ContainsData())
		assert.Equal(t, 1, stub.Processor())

		assertPanicsType(t, &StateError{}, func() { stub.Send(DataType_State, 0) })
		assertPanicsType(t, &StateError{}, func() { stub.Receive(DataType_State, 0) })
		assertPanicsType(t, &StateError{}, func() { stub.PrepareExchange() })
		assertPanicsType(t, &StateError{}, func() { stub.StateNode(0) })
		assertPanicsType(t, &StateError{}, func() { stub.ZeroData(0, DataType_State) })
	}
	{ // Test double initialization is rejected and deinitialization resets
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		g.DistributePatches()

		p := g.Patch(0)
		assert.True(t, p.ContainsData())
		assertPanicsType(t, &StateError{}, func() { p.InitializeDataLocal() })

		p.DeinitializeData()
		assert.False(t, p.ContainsData())
		p.InitializeDataLocal()
		assert.True(t, p.ContainsData())
	}
	{ // Test deinitializing a stub patch is rejected
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		g.DistributePatches()

		p := g.Patch(0)
		p.DeinitializeData()
		assert.False(t, p.ContainsData())
		assertPanicsType(t, &StateError{}, func() { p.DeinitializeData() })
	}
	{ // Test reassignment to another process releases local data
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		g.DistributePatches()

		p := g.Patch(0)
		assert.True(t, p.ContainsData())
		p.InitializeDataRemote(3)
		assert.False(t, p.ContainsData())
		assert.Equal(t, 3, p.Processor())
	}
	{ // Test reassignment releases data even when the owner is unchanged
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		g.DistributePatches()

		p := g.Patch(0)
		assert.True(t, p.ContainsData())
		p.InitializeDataRemote(g.Comm().Rank())
		assert.False(t, p.ContainsData())
		assert.Equal(t, g.Comm().Rank(), p.Processor())
	}
	{ // Test patches cannot be added after connectivity is built
		g := newSerialGrid(t, 4, 1, 2)
		g.AddDefaultPatches()
		g.DistributePatches()
		g.InitializeConnectivity()
		assertPanicsType(t, &StateError{}, func() {
			g.AddPatch(EquiangularPatchBox(0, 0, 1, 4, 0, 4, 0, 4))
		})
		assertPanicsType(t, &StateError{}, func() { g.InitializeConnectivity() })
	}
}

func TestPatch_DegreesOfFreedom(t *testing.T) {
	g := newSerialGrid(t, 4, 1, 2)
	g.AddDefaultPatches()
	g.DistributePatches()
	p := g.Patch(0)

	// A full panel patch with halo width one holds (4+2)^2 nodes per level.
	nodes2D := 36
	assert.Equal(t, nodes2D, p.Box().TotalNodes())

	// Shallow water carries three components, all on nodes, over two levels.
	assert.Equal(t, nodes2D*3*2, p.GetTotalDegreesOfFreedom(DataType_State, DataLocation_None))
	assert.Equal(t, nodes2D*3*2, p.GetTotalDegreesOfFreedom(DataType_State, DataLocation_Node))
	assert.Equal(t, 0, p.GetTotalDegreesOfFreedom(DataType_State, DataLocation_REdge))
	assert.Equal(t, 0, p.GetTotalDegreesOfFreedom(DataType_Tracers, DataLocation_Node))
	assert.Equal(t, nodes2D, p.GetTotalDegreesOfFreedom(DataType_Topography, DataLocation_None))
	assert.Equal(t, nodes2D*2, p.GetTotalDegreesOfFreedom(DataType_RayleighStrength, DataLocation_Node))
	assert.Equal(t, nodes2D*3, p.GetTotalDegreesOfFreedom(DataType_RayleighStrength, DataLocation_REdge))

	assertPanicsType(t, &ConfigurationError{}, func() {
		p.GetTotalDegreesOfFreedom(DataType_State, DataLocation_AEdge)
	})
	assertPanicsType(t, &ConfigurationError{}, func() {
		p.GetTotalDegreesOfFreedom(DataType_Vorticity, DataLocation_Node)
	})

	assert.Equal(t, 2*nodes2D, p.GetTotalDegreesOfFreedom(DataType_TopographyDeriv, DataLocation_Node))

	// Grid totals sum over the roster.
	assert.Equal(t, 6*nodes2D*3*2, g.GetTotalDegreesOfFreedom(DataType_State, DataLocation_None))
	assert.Equal(t, nodes2D, g.GetLargestGridPatchNodes())
	assert.Equal(t, 6*16, g.GetTotalNodeCount())
	assert.Equal(t, nodes2D*3*2, g.GetMaximumDegreesOfFreedom())
}

func TestPatch_DataOperations(t *testing.T) {
	g := newSerialGrid(t, 4, 1, 2)
	g.AddDefaultPatches()
	g.DistributePatches()

	fill := func(ix int, v float64) {
		for _, p := range g.ActivePatches() {
			d := p.StateNode(ix)
			for i := range d.Data {
				d.Data[i] = v
			}
		}
	}

	{ // Test copy, zero and linear combination across instances
		fill(0, 2.0)
		g.CopyData(0, 1, DataType_State)
		assert.Equal(t, 2.0, g.Patch(0).StateNode(1).Data[0])

		// 0.5*instance0 + 2*instance1 into instance 1
		g.LinearCombineData([]float64{0.5, 2.0}, 1, DataType_State)
		assert.Equal(t, 5.0, g.Patch(0).StateNode(1).Data[0])

		g.ZeroData(1, DataType_State)
		assert.Equal(t, 0.0, g.Patch(0).StateNode(1).Data[0])
	}
	{ // Test adding the reference state
		fill(0, 1.0)
		ref := g.Patch(0).RefStateNode()
		for i := range ref.Data {
			ref.Data[i] = 3.0
		}
		g.Patch(0).AddReferenceState(0)
		assert.Equal(t, 4.0, g.Patch(0).StateNode(0).Data[0])
	}
	{ // Test copy length validation
		d := NewGridData4D(DataType_State, DataLocation_Node, 1, 1, 2, 2)
		e := NewGridData4D(DataType_State, DataLocation_Node, 1, 1, 3, 3)
		assertPanicsType(t, &SizeMismatchError{}, func() { d.CopyFrom(e) })
	}
	{ // Test vertical interpolation is explicitly unsupported
		assertPanicsType(t, &UnimplementedError{}, func() {
			g.Patch(0).InterpolateNodeToREdge(0, 0)
		})
		_, err := g.ConvertReferenceToPatchCoord(nil, nil)
		assert.IsType(t, &UnimplementedError{}, err)
	}
}

func TestPatch_Coordinates(t *testing.T) {
	g := newSerialGrid(t, 4, 1, 2)
	g.AddDefaultPatches()
	g.DistributePatches()

	{ // Test equatorial panel midpoints sit on the equator
		p := g.Patch(0)
		var (
			lat = p.Latitude()
			lon = p.Longitude()
			box = p.Box()
		)
		// Panel 0 spans longitudes around zero; its center row is at
		// latitude zero by symmetry of the equiangular projection.
		var (
			iMid = box.AInteriorBegin() + 1
			lo   = lat.Data[lat.Index(iMid, box.BInteriorBegin()+1)]
			hi   = lat.Data[lat.Index(iMid, box.BInteriorEnd()-2)]
		)
		assert.InDelta(t, lo, -hi, 1.e-12)
		assert.True(t, lon.Data[lon.Index(box.AInteriorBegin(), box.BInteriorBegin())] >= 0)
	}
	{ // Test polar panels produce high latitudes
		p := g.Patch(4)
		lat := p.Latitude()
		box := p.Box()
		for i := box.AInteriorBegin(); i < box.AInteriorEnd(); i++ {
			for j := box.BInteriorBegin(); j < box.BInteriorEnd(); j++ {
				assert.True(t, lat.Data[lat.Index(i, j)] > 0.6)
			}
		}
	}
}
