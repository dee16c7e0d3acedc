package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrSolveDiverged indicates the trajectory solve produced NaN or Inf.
	ErrSolveDiverged = errors.New("dynamo: solve diverged (NaN or Inf in trajectory)")

	// ErrBadParameters indicates physically invalid construction inputs.
	ErrBadParameters = errors.New("dynamo: invalid physical parameters")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// DomainError reports an evaluate query outside a segment's solved
// horizon. It signals a controller invariant violation, never an
// expected runtime condition.
type DomainError struct {
	T       float64
	Horizon float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("dynamo: evaluate at t=%.6f outside solved horizon [0, %.6f]", e.T, e.Horizon)
}

// SimulationFault is surfaced by a tick after repeated consecutive
// solve failures on one body. The body holds its last known good
// state and segment.
type SimulationFault struct {
	Body     string
	Attempts int
	Wrapped  error
}

func (e *SimulationFault) Error() string {
	return fmt.Sprintf("dynamo: body %q faulted after %d failed solves: %v", e.Body, e.Attempts, e.Wrapped)
}

func (e *SimulationFault) Unwrap() error {
	return e.Wrapped
}
