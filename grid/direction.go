package grid

// Direction identifies one of the eight boundary directions of a patch:
// four edges and four corners. The numeric order is the canonical ring
// traversal order used when walking a patch's halo perimeter.
type Direction uint8

const (
	DirBottomLeft Direction = iota
	DirBottom
	DirBottomRight
	DirRight
	DirTopRight
	DirTop
	DirTopLeft
	DirLeft

	// DirUnreachable is the sentinel returned when no adjacency exists.
	DirUnreachable
)

var directionNames = [...]string{
	"BottomLeft", "Bottom", "BottomRight", "Right",
	"TopRight", "Top", "TopLeft", "Left", "Unreachable",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "Invalid"
}

// IsCorner reports whether d is a diagonal direction.
func (d Direction) IsCorner() bool {
	switch d {
	case DirBottomLeft, DirBottomRight, DirTopRight, DirTopLeft:
		return true
	}
	return false
}

// Vector returns the unit offset (da, db) pointing out of the patch.
func (d Direction) Vector() (da, db int) {
	switch d {
	case DirBottomLeft:
		return -1, -1
	case DirBottom:
		return 0, -1
	case DirBottomRight:
		return 1, -1
	case DirRight:
		return 1, 0
	case DirTopRight:
		return 1, 1
	case DirTop:
		return 0, 1
	case DirTopLeft:
		return -1, 1
	case DirLeft:
		return -1, 0
	}
	return 0, 0
}

// directionFromVector inverts Vector. (0,0) has no direction and returns
// DirUnreachable.
func directionFromVector(da, db int) Direction {
	switch {
	case da == -1 && db == -1:
		return DirBottomLeft
	case da == 0 && db == -1:
		return DirBottom
	case da == 1 && db == -1:
		return DirBottomRight
	case da == 1 && db == 0:
		return DirRight
	case da == 1 && db == 1:
		return DirTopRight
	case da == 0 && db == 1:
		return DirTop
	case da == -1 && db == 1:
		return DirTopLeft
	case da == -1 && db == 0:
		return DirLeft
	}
	return DirUnreachable
}
