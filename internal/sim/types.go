package sim

import (
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/newton"
)

// Metric accumulates a scalar over the accepted states of a run.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

// Observer is notified of every accepted state, including the initial one
// at step 0.
type Observer interface {
	OnStep(step int, t float64, x dynamo.State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, t float64, x dynamo.State)

func (f ObserverFunc) OnStep(step int, t float64, x dynamo.State) { f(step, t, x) }

// newtonReporter is implemented by the implicit steppers.
type newtonReporter interface {
	LastStats() newton.Stats
}

type Config struct {
	Duration float64
	Steps    int
	// ValidateState rejects steps that produce NaN or Inf even when the
	// stepper itself does not check.
	ValidateState bool
}

// Tau is the uniform step size Duration/Steps.
func (c Config) Tau() float64 {
	return c.Duration / float64(c.Steps)
}

type Result struct {
	States     []dynamo.State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	// EnergyDrift is |E(end) - E(0)| / |E(0)| for Hamiltonian models.
	EnergyDrift float64
	// NewtonIterations sums the iterations of implicit steppers.
	NewtonIterations int
}

// Final returns the last accepted state.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
