package cellmap

import "errors"

// Sentinel errors returned by Box, CellGrid, and NeighborList constructors.
// Wrap with fmt.Errorf("cellmap: ...: %w", err) to attach the offending
// parameter value; test with errors.Is against these values.
var (
	// ErrInvalidCell is returned when a lattice fails the minimum-image
	// criterion for the requested cutoff, or is otherwise degenerate (zero
	// volume, a side shorter than cutoff/lcell). Lattice entries are not
	// checked for being finite.
	ErrInvalidCell = errors.New("cellmap: invalid unit cell for this cutoff")

	// ErrCutoffNotPositive is returned for a non-positive or non-finite
	// cutoff.
	ErrCutoffNotPositive = errors.New("cellmap: cutoff must be positive and finite")

	// ErrDimensionMismatch is returned when a coordinate's dimension does
	// not match the lattice dimension, or the two point sets of a cross
	// query disagree in dimension.
	ErrDimensionMismatch = errors.New("cellmap: dimension mismatch")

	// ErrNonPeriodicWithCellOverride is returned when a caller supplies an
	// explicit cell for a system that was constructed non-periodic.
	ErrNonPeriodicWithCellOverride = errors.New("cellmap: cannot override cell on a non-periodic box")
)
