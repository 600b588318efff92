package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/automation"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/storage"
)

func newScenarioCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario of experiments concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			logger := newLogger(logLevel)
			ctx, cancel := signalContext()
			defer cancel()

			results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}

			var st *storage.Store
			for _, r := range results {
				if !save && r.Step.SaveAs == "" {
					continue
				}
				if st == nil {
					if st, err = openStore(); err != nil {
						return err
					}
					defer st.Close()
				}
				if err := storeStep(context.WithoutCancel(ctx), st, r); err != nil {
					return err
				}
			}

			fmt.Printf("scenario %s: %s\n\n", sc.Name, sc.Description)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tMODEL\tSTEPPER\tSTEPS\tNEWTON\tFINAL\tSTATUS")
			var failed int
			for i, r := range results {
				status, final, taken, iters := "ok", "-", 0, 0
				if r.Err != nil {
					status = r.Err.Error()
					failed++
				}
				if r.Result != nil {
					final = fmt.Sprintf("%.6g", r.Result.Final())
					taken, iters = r.Result.StepsTaken, r.Result.NewtonIterations
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
					i+1, r.Config.Model, r.Config.Stepper, taken, r.Config.Steps, iters, final, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario steps failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store every step in the run catalog")
	return cmd
}

func storeStep(ctx context.Context, st *storage.Store, r automation.StepResult) error {
	if r.Result == nil {
		return nil
	}
	id, err := st.Save(ctx, storage.Run{
		Model:    r.Config.Model,
		Stepper:  r.Config.Stepper,
		Duration: r.Config.Duration,
		Steps:    r.Config.Steps,
		Params:   r.Config.Params,
		Result:   r.Result,
		Err:      r.Err,
	})
	if err != nil {
		return err
	}
	if r.Step.SaveAs == "" {
		return nil
	}
	meta, err := st.Load(ctx, id)
	if err != nil {
		return err
	}
	f, err := os.Create(r.Step.SaveAs)
	if err != nil {
		return err
	}
	err = storage.ExportJSON(f, meta, r.Result.States, r.Result.Times)
	return errors.Join(err, f.Close())
}

func newSweepCmd() *cobra.Command {
	var (
		flags      runFlags
		paramName  string
		paramMin   float64
		paramMax   float64
		paramSteps int
	)
	cmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "run one configuration across a range of a model parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			if paramName == "" {
				return fmt.Errorf("--name is required")
			}
			ctx, cancel := signalContext()
			defer cancel()

			results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
				Base:      cfg,
				ParamName: paramName,
				ParamMin:  paramMin,
				ParamMax:  paramMax,
				NumSteps:  paramSteps,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tFINAL\tMIN ENERGY\tMAX ENERGY\tSTATUS\n", paramName)
			for _, r := range results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Fprintf(w, "%g\t%.6g\t%.6g\t%.6g\t%s\n", r.ParamValue, r.FinalState, r.MinEnergy, r.MaxEnergy, status)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&paramName, "name", "", "parameter to sweep")
	cmd.Flags().Float64Var(&paramMin, "min", 0.5, "first value")
	cmd.Flags().Float64Var(&paramMax, "max", 2, "last value")
	cmd.Flags().IntVar(&paramSteps, "n", 5, "number of values")
	return cmd
}

func newGridCmd() *cobra.Command {
	var (
		flags   runFlags
		axes    []string
		metric  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "grid [model]",
		Short: "search a parameter grid for the smallest value of a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			g := &automation.GridSearch{Base: cfg, Metric: metric, Workers: workers}
			for _, axis := range axes {
				name, list, ok := strings.Cut(axis, "=")
				if !ok || name == "" {
					return fmt.Errorf("invalid --axis %q, want name=v1,v2,...", axis)
				}
				var values []float64
				for _, raw := range strings.Split(list, ",") {
					v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
					if err != nil {
						return fmt.Errorf("invalid --axis %q: %w", axis, err)
					}
					values = append(values, v)
				}
				g.Params = append(g.Params, name)
				g.Values = append(g.Values, values)
			}

			ctx, cancel := signalContext()
			defer cancel()
			res, err := g.Search(ctx, experiment.NewRegistry())
			if err != nil {
				return err
			}
			fmt.Printf("evaluated %d combinations (%d failed)\n", res.Evaluated, res.Failed)
			fmt.Printf("best %s = %.6g at", metric, res.BestValue)
			for _, name := range g.Params {
				fmt.Printf(" %s=%g", name, res.Best[name])
			}
			fmt.Println()
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&axes, "axis", nil, "parameter values name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&metric, "metric", "energy_drift", "metric to minimize")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = unbounded)")
	return cmd
}
