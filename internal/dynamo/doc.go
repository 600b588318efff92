// Package dynamo provides the core contracts for time-stepping ordinary
// differential equations of the form y' = F(y).
//
// The package defines the fundamental interfaces and types shared by the
// numerical core and its clients:
//
//   - [State]: vector holding every integrated variable
//   - [Function]: right-hand side F with its Jacobian dF/dy
//   - [Stepper]: advances a [State] in place by one interval tau
//   - [Hamiltonian]: optional energy of a model, used for drift metrics
//
// # Example
//
//	rhs := physics.NewMassSpring(1, 1)
//	st, _ := integrators.NewCrankNicolson(rhs)
//	y := dynamo.State{1, 0}
//	for i := 0; i < steps; i++ {
//	    if err := st.Step(tau, y); err != nil {
//	        return err
//	    }
//	}
//
// # Thread Safety
//
// Nothing in the numerical core is safe for concurrent use. A stepper owns
// scratch buffers, and a state vector must only be mutated by one Step call
// at a time. Run independent integrations with independent steppers.
package dynamo
