package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/sim"
	"github.com/san-kum/odestep/internal/storage"
)

func newRunCmd() *cobra.Command {
	var (
		flags  runFlags
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and store its trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return runSimulation(ctx, cfg, !noSave)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func runSimulation(ctx context.Context, cfg *config.Config, save bool) error {
	exp, logger, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	logger.Info("running simulation",
		"model", cfg.Model, "stepper", cfg.Stepper,
		"duration", cfg.Duration, "steps", cfg.Steps, "tau", cfg.Tau())
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn("simulation stopped", "error", runErr, "steps_taken", result.StepsTaken)
	} else {
		logger.Info("simulation finished", "elapsed", elapsed, "steps", result.StepsTaken)
	}

	if save {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		runID, err := st.Save(context.WithoutCancel(ctx), storage.Run{
			Model:    cfg.Model,
			Stepper:  cfg.Stepper,
			Duration: cfg.Duration,
			Steps:    cfg.Steps,
			Params:   exp.Params(),
			Result:   result,
			Err:      runErr,
		})
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printSummary(cfg, result, elapsed)
	return runErr
}

func printSummary(cfg *config.Config, result *sim.Result, elapsed time.Duration) {
	fmt.Printf("model: %s  stepper: %s  tau: %g\n", cfg.Model, cfg.Stepper, cfg.Tau())
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d/%d\n", result.StepsTaken, cfg.Steps)
	fmt.Printf("final state: %v\n", result.Final())
	if experiment.NewRegistry().IsImplicit(cfg.Stepper) {
		fmt.Printf("newton iterations: %d\n", result.NewtonIterations)
	}
	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range slices.Sorted(maps.Keys(result.Metrics)) {
			fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
		}
	}
}
