// Package physics provides right-hand sides for the steppers.
//
// Each model implements [dynamo.Function], supplying F and its Jacobian:
//
//   - [Decay]: y' = -rate y
//   - [RCCircuit]: capacitor driven by a cosine source (autodiff Jacobian)
//   - [MassSpring]: single linear oscillator
//   - [Pendulum]: nonlinear pendulum (autodiff Jacobian)
//   - [SpringNetwork]: masses, anchors and springs in D dimensions
//   - [VanDerPol], [Lorenz]: nonlinear systems without closed-form solutions
//
// All models implement [dynamo.Configurable]; the mechanical ones also
// implement [dynamo.Hamiltonian]:
//
//	p := physics.NewPendulum()
//	if h, ok := any(p).(dynamo.Hamiltonian); ok {
//	    energy := h.Energy(state)
//	}
package physics

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

func unknownParam(name string) error {
	return fmt.Errorf("unknown param: %s: %w", name, dynamo.ErrParameterBounds)
}

func positive(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %g: %w", name, value, dynamo.ErrParameterBounds)
	}
	return nil
}
