package model

// PhysicalConstants carries the physical parameters of the planet. The grid
// core never reads these; they are plumbed through to the physics kernels.
type PhysicalConstants struct {
	EarthRadius    float64
	G              float64
	Omega          float64
	Rd             float64
	Gamma          float64
	ReferencePress float64
}

// DefaultPhysicalConstants returns Earth-like values.
func DefaultPhysicalConstants() PhysicalConstants {
	return PhysicalConstants{
		EarthRadius:    6.37122e6,
		G:              9.80616,
		Omega:          7.29212e-5,
		Rd:             287.0,
		Gamma:          1.4,
		ReferencePress: 1.0e5,
	}
}

// Model is the run-wide configuration consumed by the grid: the equation
// set, halo width and the number of time-level storage instances carried for
// state and tracer data.
type Model struct {
	EqSet                  EquationSet
	Phys                   PhysicalConstants
	HaloElements           int
	ComponentDataInstances int
	TracerDataInstances    int
}

// NewModel builds a model configuration with the standard two time-level
// storage layout.
func NewModel(eqSet EquationSet, haloElements int) *Model {
	return &Model{
		EqSet:                  eqSet,
		Phys:                   DefaultPhysicalConstants(),
		HaloElements:           haloElements,
		ComponentDataInstances: 2,
		TracerDataInstances:    2,
	}
}

func (m *Model) GetEquationSet() EquationSet { return m.EqSet }

func (m *Model) GetHaloElements() int { return m.HaloElements }

func (m *Model) GetComponentDataInstances() int { return m.ComponentDataInstances }

func (m *Model) GetTracerDataInstances() int { return m.TracerDataInstances }
