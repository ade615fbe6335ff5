package kernel

import "errors"

// Error taxonomy shared by every stage. Callers match with errors.Is; the
// stages wrap these with context.
var (
	// ErrNotFound means the input mesh file does not exist.
	ErrNotFound = errors.New("mesh not found")

	// ErrUnsupportedGeometry means the container yields no usable triangle
	// mesh, or its format is not understood.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")

	// ErrDegenerateGeometry means a computation has no defined result for
	// the input (zero extent, collinear hull points).
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)
