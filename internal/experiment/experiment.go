package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/newton"
	"github.com/san-kum/odestep/internal/sim"
)

// Experiment is a model, stepper and initial state assembled from a
// config.Config and ready to run.
type Experiment struct {
	cfg       *config.Config
	rhs       dynamo.Function
	stepper   dynamo.Stepper
	x0        dynamo.State
	simulator *sim.Simulator
}

type validator interface {
	Validate() error
}

// New resolves cfg against the registry: it builds the model, applies
// params, builds the stepper with the Newton settings and picks the
// initial state.
func New(r *Registry, cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rhs, err := r.GetModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	if err := applyParams(rhs, cfg.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Model, err)
	}
	if v, ok := rhs.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Model, err)
		}
	}

	stepper, err := r.GetStepper(cfg.Stepper, rhs,
		newton.WithTolerance(cfg.Newton.Tolerance),
		newton.WithMaxIterations(cfg.Newton.MaxIterations),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Stepper, err)
	}

	x0 := DefaultState(rhs)
	if len(cfg.InitState) > 0 {
		x0 = dynamo.State(cfg.InitState).Clone()
	}
	if len(x0) != rhs.DimX() {
		return nil, fmt.Errorf("init_state has %d components, %s needs %d: %w",
			len(x0), cfg.Model, rhs.DimX(), dynamo.ErrDimensionMismatch)
	}

	s := sim.New(rhs, stepper)
	s.SetLogger(logger)
	for _, m := range r.DefaultMetrics(rhs) {
		s.AddMetric(m)
	}

	return &Experiment{
		cfg:       cfg,
		rhs:       rhs,
		stepper:   stepper,
		x0:        x0,
		simulator: s,
	}, nil
}

func applyParams(rhs dynamo.Function, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := rhs.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("model has no parameters: %w", dynamo.ErrParameterBounds)
	}
	for k, v := range params {
		if err := c.SetParam(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.x0, e.SimConfig())
}

// SimConfig is the driver configuration for this experiment. Every
// accepted state is checked for NaN and Inf.
func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Duration:      e.cfg.Duration,
		Steps:         e.cfg.Steps,
		ValidateState: true,
	}
}

func (e *Experiment) Config() *config.Config     { return e.cfg }
func (e *Experiment) Model() dynamo.Function     { return e.rhs }
func (e *Experiment) Stepper() dynamo.Stepper    { return e.stepper }
func (e *Experiment) InitialState() dynamo.State { return e.x0.Clone() }

// Params reports the model parameters in effect, or nil for models
// without any.
func (e *Experiment) Params() map[string]float64 {
	if c, ok := e.rhs.(dynamo.Configurable); ok {
		return c.GetParams()
	}
	return nil
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
