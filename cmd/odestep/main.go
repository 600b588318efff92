package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/logging"
	"github.com/san-kum/odestep/internal/storage"
)

var (
	dataDir  string
	logLevel string
)

// runFlags are the flags shared by every command that builds an experiment.
type runFlags struct {
	preset     string
	configFile string
	stepper    string
	duration   float64
	steps      int
	initState  []float64
	params     []string
	tolerance  float64
	maxIter    int
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.preset, "preset", "", "preset name (see `presets`)")
	fl.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fl.StringVar(&f.stepper, "stepper", config.DefaultStepper, "stepper")
	fl.Float64Var(&f.duration, "time", config.DefaultDuration, "end time")
	fl.IntVar(&f.steps, "steps", config.DefaultSteps, "number of steps")
	fl.Float64SliceVar(&f.initState, "init", nil, "initial state, comma separated")
	fl.StringArrayVar(&f.params, "param", nil, "model parameter name=value (repeatable)")
	fl.Float64Var(&f.tolerance, "tol", config.DefaultTolerance, "newton residual tolerance")
	fl.IntVar(&f.maxIter, "max-iter", config.DefaultMaxIterations, "newton iteration bound")
}

// resolve builds the run configuration. A preset is the base, a config
// file overrides it, and explicitly set flags override both.
func (f *runFlags) resolve(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	var model string
	if len(args) > 0 {
		model = args[0]
	}

	if f.preset != "" {
		name := f.preset
		if m, n, ok := strings.Cut(f.preset, "/"); ok && model == "" {
			model, name = m, n
		}
		if model == "" {
			return nil, fmt.Errorf("--preset needs a model argument or the form model/name")
		}
		p := config.GetPreset(model, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets(model))
		}
		cfg = p
	} else if model != "" {
		cfg.Model = model
	}

	if f.configFile != "" {
		loaded, err := config.LoadOver(f.configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if model != "" && f.preset == "" && cfg.Model != model {
			return nil, fmt.Errorf("config file model %q differs from argument %q", cfg.Model, model)
		}
	}

	fl := cmd.Flags()
	if fl.Changed("stepper") {
		cfg.Stepper = f.stepper
	}
	if fl.Changed("time") {
		cfg.Duration = f.duration
	}
	if fl.Changed("steps") {
		cfg.Steps = f.steps
	}
	if fl.Changed("init") {
		cfg.InitState = append([]float64(nil), f.initState...)
	}
	if fl.Changed("tol") {
		cfg.Newton.Tolerance = f.tolerance
	}
	if fl.Changed("max-iter") {
		cfg.Newton.MaxIterations = f.maxIter
	}
	params, err := parseParams(f.params)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		cfg.Params[k] = v
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParams(kvs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(kvs))
	for _, kv := range kvs {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		out[name] = v
	}
	return out, nil
}

func newLogger(level string) *slog.Logger {
	return logging.NewLogger(level, os.Stderr)
}

func openStore() (*storage.Store, error) {
	return storage.Open(dataDir)
}

func newExperiment(cfg *config.Config) (*experiment.Experiment, *slog.Logger, error) {
	logger := newLogger(cfg.LogLevel)
	exp, err := experiment.New(experiment.NewRegistry(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return exp, logger, nil
}

// signalContext is canceled on interrupt so long runs stop between steps.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "odestep",
		Short:         "fixed-step ODE integration lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odestep", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newPlotCmd(),
		newPNGCmd(),
		newCompareCmd(),
		newOrderCmd(),
		newJacCheckCmd(),
		newLegendreCmd(),
		newLiveCmd(),
		newModelsCmd(),
		newPresetsCmd(),
		newConfigCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newGridCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
