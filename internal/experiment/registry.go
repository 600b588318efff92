package experiment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/metrics"
	"github.com/san-kum/odestep/internal/newton"
	"github.com/san-kum/odestep/internal/physics"
	"github.com/san-kum/odestep/internal/sim"
)

var (
	ErrUnknownModel   = errors.New("unknown model")
	ErrUnknownStepper = errors.New("unknown stepper")
)

// StepperFactory builds a stepper for rhs. Explicit steppers ignore opts.
type StepperFactory func(rhs dynamo.Function, opts ...newton.Option) (dynamo.Stepper, error)

type modelEntry struct {
	build       func() dynamo.Function
	description string
}

type stepperEntry struct {
	build       StepperFactory
	implicit    bool
	description string
}

type Registry struct {
	models   map[string]modelEntry
	steppers map[string]stepperEntry
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]modelEntry),
		steppers: make(map[string]stepperEntry),
	}

	r.models["decay"] = modelEntry{
		func() dynamo.Function { return physics.NewDecay() },
		"y' = -rate y",
	}
	r.models["rc_circuit"] = modelEntry{
		func() dynamo.Function { return physics.NewRCCircuit() },
		"RC circuit driven by cos(2 pi f t), state (Uc, t)",
	}
	r.models["mass_spring"] = modelEntry{
		func() dynamo.Function { return physics.NewMassSpring(physics.DefaultMass, physics.DefaultStiffness) },
		"linear oscillator, state (x, v)",
	}
	r.models["pendulum"] = modelEntry{
		func() dynamo.Function { return physics.NewPendulum() },
		"nonlinear pendulum, state (theta, omega)",
	}
	r.models["spring_network"] = modelEntry{
		func() dynamo.Function { return physics.NewHangingChain(2, 100) },
		"two masses hanging from an anchor in 2-D",
	}
	r.models["vanderpol"] = modelEntry{
		func() dynamo.Function { return physics.NewVanDerPol() },
		"Van der Pol oscillator, stiff for large mu",
	}
	r.models["lorenz"] = modelEntry{
		func() dynamo.Function { return physics.NewLorenz() },
		"Lorenz attractor, state (x, y, z)",
	}

	r.steppers["explicit_euler"] = stepperEntry{
		func(rhs dynamo.Function, _ ...newton.Option) (dynamo.Stepper, error) {
			return integrators.NewExplicitEuler(rhs)
		},
		false, "forward Euler, order 1",
	}
	r.steppers["improved_euler"] = stepperEntry{
		func(rhs dynamo.Function, _ ...newton.Option) (dynamo.Stepper, error) {
			return integrators.NewImprovedEuler(rhs)
		},
		false, "explicit midpoint, order 2",
	}
	r.steppers["rk4"] = stepperEntry{
		func(rhs dynamo.Function, _ ...newton.Option) (dynamo.Stepper, error) {
			return integrators.NewRK4(rhs)
		},
		false, "classical Runge-Kutta, order 4",
	}
	r.steppers["implicit_euler"] = stepperEntry{
		func(rhs dynamo.Function, opts ...newton.Option) (dynamo.Stepper, error) {
			return integrators.NewImplicitEuler(rhs, opts...)
		},
		true, "backward Euler with Newton, order 1",
	}
	r.steppers["crank_nicolson"] = stepperEntry{
		func(rhs dynamo.Function, opts ...newton.Option) (dynamo.Stepper, error) {
			return integrators.NewCrankNicolson(rhs, opts...)
		},
		true, "trapezoidal rule with Newton, order 2",
	}

	return r
}

func (r *Registry) GetModel(name string) (dynamo.Function, error) {
	e, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return e.build(), nil
}

func (r *Registry) GetStepper(name string, rhs dynamo.Function, opts ...newton.Option) (dynamo.Stepper, error) {
	e, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepper, name)
	}
	return e.build(rhs, opts...)
}

// StepperFactory returns the named factory with opts bound, for callers
// that build one stepper per run.
func (r *Registry) StepperFactory(name string, opts ...newton.Option) (func(dynamo.Function) (dynamo.Stepper, error), error) {
	e, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepper, name)
	}
	return func(rhs dynamo.Function) (dynamo.Stepper, error) {
		return e.build(rhs, opts...)
	}, nil
}

// IsImplicit reports whether the stepper solves a Newton system per step.
func (r *Registry) IsImplicit(name string) bool {
	return r.steppers[name].implicit
}

func (r *Registry) ModelDescription(name string) string   { return r.models[name].description }
func (r *Registry) StepperDescription(name string) string { return r.steppers[name].description }

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultState is the initial state used when a run does not give one.
func DefaultState(rhs dynamo.Function) dynamo.State {
	switch m := rhs.(type) {
	case *physics.Decay:
		return dynamo.State{1}
	case *physics.RCCircuit:
		return dynamo.State{0, 0}
	case *physics.MassSpring:
		return dynamo.State{1, 0}
	case *physics.Pendulum:
		return dynamo.State{math.Pi / 4, 0}
	case *physics.SpringNetwork:
		return m.InitialState()
	case *physics.VanDerPol:
		return dynamo.State{2, 0}
	case *physics.Lorenz:
		return dynamo.State{1, 1, 1}
	default:
		return make(dynamo.State, rhs.DimX())
	}
}

func (r *Registry) DefaultMetrics(rhs dynamo.Function) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewStability(1e6),
	}
	if h, ok := rhs.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergyDrift(h), metrics.NewEnergyTrend(h))
	}
	return ms
}
