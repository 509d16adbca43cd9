// Package model holds the external collaborator surfaces consumed by the
// grid core: the equation set (component and tracer counts, dimensionality),
// physical constants and the model-wide storage configuration. The numerical
// kernels that act on these are out of scope here; only sizing and
// data-location metadata cross the package boundary.
package model

import "fmt"

// EquationSetType tags the family of equations being solved.
type EquationSetType uint8

const (
	AdvectionEquations EquationSetType = iota
	ShallowWaterEquations
	PrimitiveNonhydrostaticEquations
)

var equationSetNames = map[string]EquationSetType{
	"advection":    AdvectionEquations,
	"shallowwater": ShallowWaterEquations,
	"nonhydro":     PrimitiveNonhydrostaticEquations,
}

// EquationSetTypeFromString resolves a configuration name to a type tag.
func EquationSetTypeFromString(name string) (EquationSetType, error) {
	t, ok := equationSetNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown equation set %q", name)
	}
	return t, nil
}

// EquationSet describes the prognostic variable layout of one equation
// family. The grid core consults it only for sizing.
type EquationSet struct {
	Type           EquationSetType
	Components     int
	Tracers        int
	Dimensionality int
}

// NewEquationSet builds the canonical variable layout for the given family.
func NewEquationSet(eqType EquationSetType, nTracers int) EquationSet {
	switch eqType {
	case AdvectionEquations:
		return EquationSet{
			Type:           eqType,
			Components:     3,
			Tracers:        nTracers,
			Dimensionality: 2,
		}
	case ShallowWaterEquations:
		return EquationSet{
			Type:           eqType,
			Components:     3,
			Tracers:        nTracers,
			Dimensionality: 2,
		}
	case PrimitiveNonhydrostaticEquations:
		return EquationSet{
			Type:           eqType,
			Components:     5,
			Tracers:        nTracers,
			Dimensionality: 3,
		}
	default:
		panic(fmt.Errorf("invalid equation set type %d", eqType))
	}
}
