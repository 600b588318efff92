// Package integrators implements fixed-step time steppers for y' = F(y).
//
//   - [ExplicitEuler]: y1 = y0 + tau F(y0)
//   - [ImplicitEuler]: y1 = y0 + tau F(y1), Newton solve per step
//   - [CrankNicolson]: y1 = y0 + tau/2 (F(y0) + F(y1)), Newton solve per step
//   - [ImprovedEuler], [RK4]: explicit multi-stage extras
//
// Every stepper advances the caller's state in place and leaves it untouched
// when Step returns an error. None of them adapt tau.
package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

func checkStep(rhs dynamo.Function, tau float64, y dynamo.State) error {
	if tau < 0 || math.IsNaN(tau) || math.IsInf(tau, 0) {
		return fmt.Errorf("tau=%g: %w", tau, dynamo.ErrInvalidStep)
	}
	if len(y) != rhs.DimX() {
		return fmt.Errorf("len(y)=%d dimX=%d: %w", len(y), rhs.DimX(), dynamo.ErrDimensionMismatch)
	}
	return nil
}
