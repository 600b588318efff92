package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/autodiff"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/export"
	"github.com/san-kum/odestep/internal/newton"
	"github.com/san-kum/odestep/internal/sim"
	"github.com/san-kum/odestep/internal/tui"
)

func newCompareCmd() *cobra.Command {
	var (
		flags   runFlags
		workers int
	)
	cmd := &cobra.Command{
		Use:   "compare [model] [stepper...]",
		Short: "run several steppers on the same problem concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[:1])
			if err != nil {
				return err
			}
			steppers := args[1:]
			if len(steppers) == 0 {
				steppers = experiment.NewRegistry().ListSteppers()
			}

			logger := newLogger(cfg.LogLevel)
			jobs := make([]sim.Job, len(steppers))
			var hamiltonian bool
			for i, name := range steppers {
				c := cfg.Clone()
				c.Stepper = name
				exp, err := experiment.New(experiment.NewRegistry(), c, logger)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				_, hamiltonian = exp.Model().(dynamo.Hamiltonian)
				jobs[i] = sim.Job{
					Name:   name,
					Sim:    exp.GetSimulator(),
					X0:     exp.InitialState(),
					Config: exp.SimConfig(),
				}
			}

			ctx, cancel := signalContext()
			defer cancel()
			logger.Info("comparing steppers", "model", cfg.Model, "steppers", len(jobs), "tau", cfg.Tau())

			rows := make([]tui.CompareRow, 0, len(jobs))
			for _, out := range sim.Batch(ctx, jobs, workers) {
				row := tui.CompareRow{Name: out.Name, Err: out.Err}
				if out.Result != nil {
					row.StepsTaken = out.Result.StepsTaken
					row.Final = out.Result.Final()
					row.EnergyDrift = out.Result.EnergyDrift
					row.Newton = out.Result.NewtonIterations
				}
				rows = append(rows, row)
			}
			fmt.Printf("%s: duration %g, %d steps, tau %g\n", cfg.Model, cfg.Duration, cfg.Steps, cfg.Tau())
			fmt.Println(tui.CompareTable(rows, hamiltonian))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = one per stepper)")
	return cmd
}

func newOrderCmd() *cobra.Command {
	var (
		flags  runFlags
		ladder []int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "order [model] [stepper...]",
		Short: "estimate the empirical order of convergence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[:1])
			if err != nil {
				return err
			}
			steppers := args[1:]
			if len(steppers) == 0 {
				steppers = []string{cfg.Stepper}
			}

			exp, _, err := newExperiment(cfg)
			if err != nil {
				return err
			}
			registry := experiment.NewRegistry()
			ctx, cancel := signalContext()
			defer cancel()

			studies := make(map[string]*analysis.Study, len(steppers))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range steppers {
				factory, err := registry.StepperFactory(name,
					newton.WithTolerance(cfg.Newton.Tolerance),
					newton.WithMaxIterations(cfg.Newton.MaxIterations),
				)
				if err != nil {
					return err
				}
				study, err := analysis.ConvergenceStudy(ctx, exp.Model(), factory, exp.InitialState(), cfg.Duration, ladder)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				studies[name] = study

				reference := "exact solution"
				if study.SelfConvergent {
					reference = "next finer run"
				}
				fmt.Fprintf(w, "%s (error against %s)\n", name, reference)
				fmt.Fprintln(w, "STEPS\tTAU\tERROR\tORDER")
				for i, s := range study.Samples {
					order := "-"
					if i > 0 {
						order = fmt.Sprintf("%.3f", study.Orders[i-1])
					}
					fmt.Fprintf(w, "%d\t%.4g\t%.4e\t%s\n", s.Steps, s.Tau, s.Error, order)
				}
				fmt.Fprintf(w, "mean order\t\t\t%.3f\n\n", study.MeanOrder())
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if out != "" {
				p, err := export.ConvergencePlot(fmt.Sprintf("%s convergence", cfg.Model), studies)
				if err != nil {
					return err
				}
				return savePlot(p, out)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntSliceVar(&ladder, "ladder", []int{10, 20, 40, 80, 160}, "step counts to compare")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a log-log error plot")
	return cmd
}

func newJacCheckCmd() *cobra.Command {
	var (
		flags     runFlags
		eps       float64
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "jaccheck [model]",
		Short: "compare a model Jacobian with central differences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			exp, _, err := newExperiment(cfg)
			if err != nil {
				return err
			}
			rhs, x := exp.Model(), exp.InitialState()

			exact := mat.NewDense(rhs.DimF(), rhs.DimX(), nil)
			approx := mat.NewDense(rhs.DimF(), rhs.DimX(), nil)
			rhs.EvaluateDeriv(x, exact)
			dynamo.CentralDifference(rhs, x, eps, approx)
			diff := dynamo.MaxAbsDiff(exact, approx)

			fmt.Printf("%s at x = %v\n\n", cfg.Model, x)
			fmt.Printf("model jacobian:\n%.6g\n\n", mat.Formatted(exact, mat.Squeeze()))
			fmt.Printf("central difference (eps %g):\n%.6g\n\n", eps, mat.Formatted(approx, mat.Squeeze()))
			fmt.Printf("max abs difference: %.3e\n", diff)
			if diff > threshold {
				return fmt.Errorf("jacobian mismatch %.3e exceeds %.3e", diff, threshold)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&eps, "eps", 1e-6, "finite difference step")
	cmd.Flags().Float64Var(&threshold, "threshold", 1e-4, "largest accepted difference")
	return cmd
}

func newLegendreCmd() *cobra.Command {
	var (
		degree int
		points int
	)
	cmd := &cobra.Command{
		Use:   "legendre",
		Short: "tabulate Legendre polynomials and their derivatives as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if degree < 0 || points < 2 {
				return fmt.Errorf("need degree >= 0 and points >= 2")
			}
			w := csv.NewWriter(os.Stdout)
			header := []string{"x"}
			for k := 0; k <= degree; k++ {
				header = append(header, fmt.Sprintf("P%d", k))
			}
			for k := 0; k <= degree; k++ {
				header = append(header, fmt.Sprintf("dP%d", k))
			}
			if err := w.Write(header); err != nil {
				return err
			}

			for i := range points {
				x := -1 + 2*float64(i)/float64(points-1)
				p := autodiff.Legendre(degree, autodiff.Variable[[1]float64](x, 0))
				row := []string{strconv.FormatFloat(x, 'g', -1, 64)}
				for _, v := range p {
					row = append(row, strconv.FormatFloat(v.Value(), 'g', 12, 64))
				}
				for _, v := range p {
					row = append(row, strconv.FormatFloat(v.Deriv(0), 'g', 12, 64))
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}
	cmd.Flags().IntVarP(&degree, "degree", "n", 5, "highest polynomial degree")
	cmd.Flags().IntVar(&points, "points", 11, "sample points on [-1, 1]")
	return cmd
}
