package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/logging"
)

// Simulator drives a stepper over a uniform grid. It owns no numerics: every
// step goes through the stepper, which reports failure as an error.
type Simulator struct {
	rhs       dynamo.Function
	stepper   dynamo.Stepper
	metrics   []Metric
	observers []Observer
	logger    *slog.Logger
}

func New(rhs dynamo.Function, stepper dynamo.Stepper) *Simulator {
	return &Simulator{
		rhs:       rhs,
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.New(slog.DiscardHandler),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run advances x0 by cfg.Steps steps of size cfg.Tau(). x0 is not modified.
// On a failed step it returns the states accepted so far together with a
// *dynamo.SimulationError; on cancellation the error wraps
// dynamo.ErrContextCanceled.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	tau := cfg.Tau()
	result := &Result{
		States:  make([]dynamo.State, 0, cfg.Steps+1),
		Times:   make([]float64, 0, cfg.Steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	s.accept(result, 0, t, x)

	initialEnergy := s.computeEnergy(x)

	var runErr error
	for i := 1; i <= cfg.Steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
			break
		}

		if err := s.stepper.Step(tau, x); err != nil {
			runErr = s.fail(i, t, x, err)
			break
		}
		if cfg.ValidateState && !x.IsValid() {
			runErr = s.fail(i, t, result.Final(), dynamo.ErrInvalidState)
			break
		}

		if nr, ok := s.stepper.(newtonReporter); ok {
			st := nr.LastStats()
			result.NewtonIterations += st.Iterations
			s.logger.Log(ctx, logging.LevelTrace, "newton",
				"step", i, "iterations", st.Iterations, "residual", st.Residual)
		}

		// time from the index keeps the grid free of accumulated rounding
		t = float64(i) * tau
		result.StepsTaken++
		s.accept(result, i, t, x)
	}

	if initialEnergy != 0 {
		finalEnergy := s.computeEnergy(result.Final())
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

func (s *Simulator) accept(result *Result, step int, t float64, x dynamo.State) {
	snap := x.Clone()
	result.States = append(result.States, snap)
	result.Times = append(result.Times, t)

	for _, m := range s.metrics {
		m.Observe(snap, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(step, t, snap)
	}
}

func (s *Simulator) fail(step int, t float64, last dynamo.State, err error) error {
	s.logger.Warn("step failed", "step", step, "time", t, "error", err)
	return &dynamo.SimulationError{
		Step:    step,
		Time:    t,
		State:   last.Clone(),
		Wrapped: err,
	}
}

func (s *Simulator) validate(x0 dynamo.State, cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d: %w", cfg.Steps, dynamo.ErrInvalidStep)
	}
	if cfg.Duration < 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be finite and non-negative, got %g: %w", cfg.Duration, dynamo.ErrInvalidStep)
	}
	if len(x0) != s.rhs.DimX() {
		return fmt.Errorf("initial state has %d components, model has %d: %w",
			len(x0), s.rhs.DimX(), dynamo.ErrDimensionMismatch)
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}

func (s *Simulator) computeEnergy(x dynamo.State) float64 {
	if h, ok := s.rhs.(dynamo.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}
