package grid

import "fmt"

// The error taxonomy of the grid core. All of these indicate unrecoverable
// conditions: a malformed manifold definition, a mis-sized configuration, a
// caller sequencing bug or a wire-size disagreement. None may be swallowed;
// callers are expected to abort the process.

// TopologyError indicates an unresolvable panel adjacency in the manifold
// definition.
type TopologyError struct {
	SourcePanel int
	DestPanel   int
	Dir         Direction
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("unresolvable panel adjacency: panel %d -> panel %d via %s",
		e.SourcePanel, e.DestPanel, e.Dir)
}

// ConfigurationError indicates a decomposition or sizing request the grid
// cannot satisfy, such as a diagonal connection reaching past a neighbor's
// interior or an invalid data kind / location pairing.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// StateError indicates a caller sequencing bug: double initialization,
// operating on a stub patch, or consolidating after completion.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

// SizeMismatchError indicates a disagreement between an expected and a
// received element count.
type SizeMismatchError struct {
	Context  string
	Expected int
	Got      int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d elements, got %d", e.Context, e.Expected, e.Got)
}

// UnimplementedError marks an operation the grid explicitly does not
// support.
type UnimplementedError struct {
	Op string
}

func (e *UnimplementedError) Error() string { return e.Op + ": not supported" }
