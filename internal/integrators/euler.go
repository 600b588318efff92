package integrators

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

type ExplicitEuler struct {
	rhs     dynamo.Function
	f       dynamo.State
	scratch dynamo.State
}

func NewExplicitEuler(rhs dynamo.Function) (*ExplicitEuler, error) {
	if err := dynamo.CheckSquare(rhs); err != nil {
		return nil, err
	}
	n := rhs.DimX()
	return &ExplicitEuler{rhs: rhs, f: make(dynamo.State, n), scratch: make(dynamo.State, n)}, nil
}

func (e *ExplicitEuler) Step(tau float64, y dynamo.State) error {
	if err := checkStep(e.rhs, tau, y); err != nil {
		return err
	}
	e.rhs.Evaluate(y, e.f)
	for i := range y {
		e.scratch[i] = y[i] + tau*e.f[i]
	}
	if !e.scratch.IsValid() {
		return fmt.Errorf("explicit euler: %w", dynamo.ErrInvalidState)
	}
	copy(y, e.scratch)
	return nil
}

// ImprovedEuler is the explicit midpoint rule:
//
//	y~ = y0 + tau/2 F(y0),  y1 = y0 + tau F(y~)
type ImprovedEuler struct {
	rhs     dynamo.Function
	f       dynamo.State
	scratch dynamo.State
}

func NewImprovedEuler(rhs dynamo.Function) (*ImprovedEuler, error) {
	if err := dynamo.CheckSquare(rhs); err != nil {
		return nil, err
	}
	n := rhs.DimX()
	return &ImprovedEuler{rhs: rhs, f: make(dynamo.State, n), scratch: make(dynamo.State, n)}, nil
}

func (e *ImprovedEuler) Step(tau float64, y dynamo.State) error {
	if err := checkStep(e.rhs, tau, y); err != nil {
		return err
	}
	e.rhs.Evaluate(y, e.f)
	for i := range y {
		e.scratch[i] = y[i] + 0.5*tau*e.f[i]
	}
	e.rhs.Evaluate(e.scratch, e.f)
	for i := range y {
		e.scratch[i] = y[i] + tau*e.f[i]
	}
	if !e.scratch.IsValid() {
		return fmt.Errorf("improved euler: %w", dynamo.ErrInvalidState)
	}
	copy(y, e.scratch)
	return nil
}
