// Package automation runs scripted batches of experiments: YAML scenarios
// and parameter sweeps.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/sim"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Workers     int            `yaml:"workers"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Preset names a "model/preset" base that the
// remaining fields override. SaveAs, when set, is a path the trajectory is
// exported to as JSON after the run is stored.
type ScenarioStep struct {
	Preset    string             `yaml:"preset"`
	Model     string             `yaml:"model"`
	Stepper   string             `yaml:"stepper"`
	Duration  float64            `yaml:"duration"`
	Steps     int                `yaml:"steps"`
	InitState []float64          `yaml:"init_state"`
	Params    map[string]float64 `yaml:"params"`
	SaveAs    string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// Config resolves the step into a full run configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		model, name, _ := strings.Cut(s.Preset, "/")
		p := config.GetPreset(model, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
		cfg = p
	}

	if s.Model != "" {
		if s.Model != cfg.Model {
			cfg.InitState = nil
		}
		cfg.Model = s.Model
	}
	if s.Stepper != "" {
		cfg.Stepper = s.Stepper
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if len(s.InitState) > 0 {
		cfg.InitState = append([]float64(nil), s.InitState...)
	}
	if len(s.Params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(s.Params))
		}
		for k, v := range s.Params {
			cfg.Params[k] = v
		}
	}
	return cfg, cfg.Validate()
}

// StepResult pairs a scenario step with its outcome.
type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Result *sim.Result
	Err    error
}

// RunScenario executes all steps concurrently through sim.Batch. Setup
// errors abort before anything runs; run errors are reported per step.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]StepResult, len(scenario.Steps))
	jobs := make([]sim.Job, len(scenario.Steps))
	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(registry, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		results[i] = StepResult{Step: step, Config: cfg}
		jobs[i] = sim.Job{
			Name:   fmt.Sprintf("%d:%s/%s", i+1, cfg.Model, cfg.Stepper),
			Sim:    exp.GetSimulator(),
			X0:     exp.InitialState(),
			Config: exp.SimConfig(),
		}
	}

	logger.Info("running scenario", "name", scenario.Name, "steps", len(jobs))
	for i, out := range sim.Batch(ctx, jobs, scenario.Workers) {
		results[i].Result = out.Result
		results[i].Err = out.Err
		if out.Err != nil {
			logger.Warn("scenario step failed", "job", out.Name, "error", out.Err)
		} else {
			logger.Debug("scenario step done", "job", out.Name, "steps", out.Result.StepsTaken)
		}
	}

	return results, nil
}

// ParameterSweep runs one configuration across a range of values of a
// single model parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	MaxEnergy  float64
	MinEnergy  float64
	Err        error
}

// RunSweep executes a parameter sweep. A failed run is recorded in its
// SweepResult and the sweep continues.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 values, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, 1)
		}
		cfg.Params[sweep.ParamName] = paramVal

		exp, err := experiment.New(registry, cfg, nil)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		result, err := exp.Run(ctx)
		if errors.Is(err, dynamo.ErrContextCanceled) {
			return results, err
		}

		sr := SweepResult{ParamValue: paramVal, Err: err}
		if result != nil && len(result.States) > 0 {
			sr.FinalState = result.Final()
			if ec, ok := exp.Model().(dynamo.Hamiltonian); ok {
				sr.MinEnergy, sr.MaxEnergy = ec.Energy(result.States[0]), ec.Energy(result.States[0])
				for _, s := range result.States {
					e := ec.Energy(s)
					sr.MaxEnergy = max(sr.MaxEnergy, e)
					sr.MinEnergy = min(sr.MinEnergy, e)
				}
			}
		}

		results = append(results, sr)
	}

	return results, nil
}
