package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a non-square right-hand side or a state
	// vector whose length differs from the function dimension.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrNotConverged indicates the Newton iteration hit its iteration bound.
	ErrNotConverged = errors.New("dynamo: newton iteration did not converge")

	// ErrSingularJacobian indicates a degenerate linear system inside Newton.
	ErrSingularJacobian = errors.New("dynamo: singular jacobian")

	// ErrInvalidStep indicates a negative or non-finite step size.
	ErrInvalidStep = errors.New("dynamo: step size must be finite and non-negative")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the driver was interrupted between steps.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps a step failure with the position in the run.
// State is the last accepted state, which the failed step left untouched.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
