package integrators

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

// RK4 is the classic fixed-step fourth order Runge-Kutta scheme.
type RK4 struct {
	rhs            dynamo.Function
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4(rhs dynamo.Function) (*RK4, error) {
	if err := dynamo.CheckSquare(rhs); err != nil {
		return nil, err
	}
	n := rhs.DimX()
	return &RK4{
		rhs:     rhs,
		k1:      make(dynamo.State, n),
		k2:      make(dynamo.State, n),
		k3:      make(dynamo.State, n),
		k4:      make(dynamo.State, n),
		scratch: make(dynamo.State, n),
	}, nil
}

func (r *RK4) Step(tau float64, y dynamo.State) error {
	if err := checkStep(r.rhs, tau, y); err != nil {
		return err
	}
	n := len(y)

	r.rhs.Evaluate(y, r.k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + tau*0.5*r.k1[i]
	}
	r.rhs.Evaluate(r.scratch, r.k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + tau*0.5*r.k2[i]
	}
	r.rhs.Evaluate(r.scratch, r.k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + tau*r.k3[i]
	}
	r.rhs.Evaluate(r.scratch, r.k4)

	tau6 := tau / 6.0
	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + tau6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	if !r.scratch.IsValid() {
		return fmt.Errorf("rk4: %w", dynamo.ErrInvalidState)
	}
	copy(y, r.scratch)
	return nil
}
