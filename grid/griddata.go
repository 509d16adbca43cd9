package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DataType is the closed set of field-data kinds held on a patch. Packing,
// sizing and consolidation all dispatch over this enum.
type DataType uint8

const (
	DataType_None DataType = iota
	DataType_State
	DataType_RefState
	DataType_Tracers
	DataType_Pressure
	DataType_Vorticity
	DataType_Divergence
	DataType_Temperature
	DataType_Topography
	DataType_TopographyDeriv
	DataType_RayleighStrength

	DataType_Count
)

var dataTypeNames = [...]string{
	"None", "State", "RefState", "Tracers", "Pressure", "Vorticity",
	"Divergence", "Temperature", "Topography", "TopographyDeriv",
	"RayleighStrength",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// DataLocation is the staggering position of a field within a cell column.
type DataLocation uint8

const (
	DataLocation_None DataLocation = iota
	DataLocation_Node
	DataLocation_AEdge
	DataLocation_BEdge
	DataLocation_REdge

	DataLocation_Count
)

var dataLocationNames = [...]string{"None", "Node", "AEdge", "BEdge", "REdge"}

func (l DataLocation) String() string {
	if int(l) < len(dataLocationNames) {
		return dataLocationNames[l]
	}
	return fmt.Sprintf("DataLocation(%d)", uint8(l))
}

// GridData4D is flat storage for a (component, level, alpha, beta) field.
// Data layout is row-major: component outermost, beta innermost.
type GridData4D struct {
	Type     DataType
	Location DataLocation
	NC       int // components
	NR       int // vertical levels (or interfaces)
	NA       int // total alpha width
	NB       int // total beta width
	Data     []float64
}

// NewGridData4D allocates zeroed storage.
func NewGridData4D(t DataType, loc DataLocation, nc, nr, na, nb int) *GridData4D {
	return &GridData4D{
		Type: t, Location: loc,
		NC: nc, NR: nr, NA: na, NB: nb,
		Data: make([]float64, nc*nr*na*nb),
	}
}

func (d *GridData4D) Index(c, k, i, j int) int {
	return ((c*d.NR+k)*d.NA+i)*d.NB + j
}

func (d *GridData4D) TotalElements() int { return len(d.Data) }

func (d *GridData4D) Zero() {
	for i := range d.Data {
		d.Data[i] = 0
	}
}

func (d *GridData4D) Scale(c float64) { floats.Scale(c, d.Data) }

// AddProduct accumulates c times other into d.
func (d *GridData4D) AddProduct(other *GridData4D, c float64) {
	if len(other.Data) != len(d.Data) {
		panic(&SizeMismatchError{
			Context:  "GridData4D add product",
			Expected: len(d.Data),
			Got:      len(other.Data),
		})
	}
	floats.AddScaled(d.Data, c, other.Data)
}

func (d *GridData4D) CopyFrom(other *GridData4D) {
	if len(other.Data) != len(d.Data) {
		panic(&SizeMismatchError{
			Context:  "GridData4D copy",
			Expected: len(d.Data),
			Got:      len(other.Data),
		})
	}
	copy(d.Data, other.Data)
}

// GridData3D is flat storage for a (level, alpha, beta) scalar field.
type GridData3D struct {
	Type     DataType
	Location DataLocation
	NR       int
	NA       int
	NB       int
	Data     []float64
}

func NewGridData3D(t DataType, loc DataLocation, nr, na, nb int) *GridData3D {
	return &GridData3D{
		Type: t, Location: loc,
		NR: nr, NA: na, NB: nb,
		Data: make([]float64, nr*na*nb),
	}
}

func (d *GridData3D) Index(k, i, j int) int {
	return (k*d.NA+i)*d.NB + j
}

func (d *GridData3D) TotalElements() int { return len(d.Data) }

func (d *GridData3D) Zero() {
	for i := range d.Data {
		d.Data[i] = 0
	}
}

// GridData2D is flat storage for a surface (alpha, beta) field.
type GridData2D struct {
	Type DataType
	NA   int
	NB   int
	Data []float64
}

func NewGridData2D(t DataType, na, nb int) *GridData2D {
	return &GridData2D{Type: t, NA: na, NB: nb, Data: make([]float64, na*nb)}
}

func (d *GridData2D) Index(i, j int) int { return i*d.NB + j }

func (d *GridData2D) TotalElements() int { return len(d.Data) }
