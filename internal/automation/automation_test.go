package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
)

const scenarioYAML = `
name: oscillator-schemes
description: three steppers on the mass-spring preset
workers: 2
steps:
  - preset: mass_spring/two_periods
    stepper: explicit_euler
  - preset: mass_spring/two_periods
    stepper: implicit_euler
  - preset: mass_spring/two_periods
  - model: pendulum
    stepper: crank_nicolson
    duration: 10
    steps: 1000
    init_state: [1, 0]
    params:
      length: 2
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "oscillator-schemes" || sc.Workers != 2 || len(sc.Steps) != 4 {
		t.Errorf("loaded %+v", sc)
	}

	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestScenarioStepConfig(t *testing.T) {
	tests := []struct {
		name    string
		step    ScenarioStep
		model   string
		stepper string
		steps   int
		init    int
		wantErr bool
	}{
		{"preset", ScenarioStep{Preset: "mass_spring/two_periods"}, "mass_spring", "crank_nicolson", 500, 2, false},
		{"preset override", ScenarioStep{Preset: "rc_circuit/exercise", Stepper: "crank_nicolson", Steps: 100}, "rc_circuit", "crank_nicolson", 100, 2, false},
		{"model switch drops init", ScenarioStep{Preset: "rc_circuit/exercise", Model: "decay"}, "decay", "implicit_euler", 50, 0, false},
		{"defaults", ScenarioStep{}, config.DefaultModel, config.DefaultStepper, config.DefaultSteps, 0, false},
		{"unknown preset", ScenarioStep{Preset: "pendulum/nope"}, "", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.step.Config()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Model != tt.model || cfg.Stepper != tt.stepper || cfg.Steps != tt.steps || len(cfg.InitState) != tt.init {
				t.Errorf("got %+v", cfg)
			}
		})
	}
}

func TestScenarioStepConfigCopiesInitState(t *testing.T) {
	step := ScenarioStep{Model: "mass_spring", InitState: []float64{1, 0}}
	cfg, err := step.Config()
	if err != nil {
		t.Fatal(err)
	}
	cfg.InitState[0] = 5
	if step.InitState[0] != 1 {
		t.Errorf("step init state changed to %v", step.InitState)
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	for i := 0; i < 3; i++ {
		if results[i].Err != nil {
			t.Errorf("step %d: %v", i+1, results[i].Err)
		}
	}
	explicit := results[0].Result.Metrics["energy_trend"]
	implicit := results[1].Result.Metrics["energy_trend"]
	if explicit != 1 || implicit != -1 {
		t.Errorf("energy trends: explicit %v, implicit %v", explicit, implicit)
	}
	if drift := results[2].Result.EnergyDrift; drift > 1e-10 {
		t.Errorf("crank-nicolson drift %g", drift)
	}
	if results[3].Err != nil {
		t.Errorf("pendulum step: %v", results[3].Err)
	}
}

func TestRunScenarioSetupError(t *testing.T) {
	sc := &Scenario{Name: "bad", Steps: []ScenarioStep{{Model: "cartpole"}}}
	if _, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil); !errors.Is(err, experiment.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("mass_spring", "two_periods")
	sweep := &ParameterSweep{
		Base:      base,
		ParamName: "stiffness",
		ParamMin:  1,
		ParamMax:  4,
		NumSteps:  4,
	}

	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("value %v: %v", r.ParamValue, r.Err)
		}
		if want := float64(i + 1); r.ParamValue != want {
			t.Errorf("param %d = %v, want %v", i, r.ParamValue, want)
		}
		// x0 = 1, so E = k/2 and Crank-Nicolson keeps it
		if r.MaxEnergy-r.MinEnergy > 1e-9 {
			t.Errorf("stiffness %v: energy range [%v, %v]", r.ParamValue, r.MinEnergy, r.MaxEnergy)
		}
	}
	if base.Params != nil {
		t.Error("sweep mutated the base config")
	}

	sweep.NumSteps = 1
	if _, err := RunSweep(context.Background(), sweep, experiment.NewRegistry()); err == nil {
		t.Error("expected error for a single value")
	}
}

func TestRunSweepRecordsFailures(t *testing.T) {
	base := config.DefaultConfig()
	base.Model = "pendulum"
	base.Stepper = "crank_nicolson"
	base.Duration = 10
	base.Steps = 10
	base.Newton.MaxIterations = 1

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base: base, ParamName: "length", ParamMin: 1, ParamMax: 2, NumSteps: 2,
	}, experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if !errors.Is(r.Err, dynamo.ErrNotConverged) {
			t.Errorf("length %v: expected non-convergence, got %v", r.ParamValue, r.Err)
		}
	}
}

func TestGridSearch(t *testing.T) {
	base := config.GetPreset("mass_spring", "explicit")
	g := &GridSearch{
		Base:    base,
		Params:  []string{"stiffness", "mass"},
		Values:  [][]float64{{1, 4}, {1, 4}},
		Metric:  "energy_drift",
		Workers: 2,
	}
	if got := len(g.combinations()); got != 4 {
		t.Fatalf("combinations = %d, want 4", got)
	}

	res, err := g.Search(context.Background(), experiment.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if res.Evaluated != 4 || res.Failed != 0 {
		t.Errorf("evaluated %d, failed %d", res.Evaluated, res.Failed)
	}
	// explicit Euler gains energy fastest at high frequency sqrt(k/m)
	if res.Best["stiffness"] != 1 || res.Best["mass"] != 4 {
		t.Errorf("best = %v (%g)", res.Best, res.BestValue)
	}
	if res.BestValue <= 0 {
		t.Errorf("best drift = %g, want positive", res.BestValue)
	}
	if base.Params != nil {
		t.Error("search mutated the base config")
	}
}

func TestGridSearchErrors(t *testing.T) {
	base := config.GetPreset("mass_spring", "explicit")
	reg := experiment.NewRegistry()

	g := &GridSearch{Base: base, Params: []string{"mass"}, Values: nil, Metric: "energy_drift"}
	if _, err := g.Search(context.Background(), reg); err == nil {
		t.Error("expected error for missing values")
	}

	g = &GridSearch{Base: base, Params: []string{"mass"}, Values: [][]float64{{1}}, Metric: "nope"}
	if _, err := g.Search(context.Background(), reg); err == nil {
		t.Error("expected error for unknown metric")
	}

	g = &GridSearch{Base: base, Params: []string{"mass"}, Values: [][]float64{{-1}}, Metric: "energy_drift"}
	if _, err := g.Search(context.Background(), reg); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}
