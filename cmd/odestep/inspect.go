package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/export"
	"github.com/san-kum/odestep/internal/storage"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODEL\tSTEPPER\tCREATED\tSTEPS\tTAU\tSTATUS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%g\t%s\n",
					run.ID,
					run.Model,
					run.Stepper,
					run.Created.Local().Format("2006-01-02 15:04:05"),
					run.StepsTaken, run.Steps,
					run.Tau,
					run.Status,
				)
			}
			return w.Flush()
		},
	}
}

// loadRun reads the catalog entry and trajectory of a stored run.
func loadRun(ctx context.Context, runID string) (*storage.RunMetadata, []dynamo.State, []float64, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, states, times, nil
}

func newShowCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "export a run (metadata and trajectory) as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, states, times, err := loadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return storage.ExportJSON(os.Stdout, meta, states, times)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := storage.ExportJSON(f, meta, states, times); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

var componentCaptions = map[string][]string{
	"decay":       {"y"},
	"rc_circuit":  {"Uc (capacitor voltage)", "t"},
	"mass_spring": {"x (position)", "v (velocity)"},
	"pendulum":    {"theta (angle)", "omega (angular velocity)"},
}

func caption(model string, i int) string {
	if c := componentCaptions[model]; i < len(c) {
		return c[i]
	}
	return fmt.Sprintf("x%d", i)
}

func newPlotCmd() *cobra.Command {
	var (
		components []int
		phase      []int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot state components in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, states, _, err := loadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(states) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("model: %s  stepper: %s\n", meta.Model, meta.Stepper)
			fmt.Printf("samples: %d\n\n", len(states))

			if len(phase) > 0 {
				if len(phase) != 2 {
					return fmt.Errorf("--phase needs two component indices, got %v", phase)
				}
				portrait, err := analysis.NewPhasePortrait(states, phase[0], phase[1])
				if err != nil {
					return err
				}
				fmt.Printf("%s vs %s\n", caption(meta.Model, phase[1]), caption(meta.Model, phase[0]))
				fmt.Println(portrait.ASCII(80, 24))
				return nil
			}

			idx := components
			if len(idx) == 0 {
				for i := range min(len(states[0]), 6) {
					idx = append(idx, i)
				}
			}
			for _, i := range idx {
				if i < 0 || i >= len(states[0]) {
					return fmt.Errorf("component %d out of range [0, %d)", i, len(states[0]))
				}
				data := make([]float64, len(states))
				for k, s := range states {
					data[k] = s[i]
				}
				graph := asciigraph.Plot(data,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(caption(meta.Model, i)),
				)
				fmt.Println(graph)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&components, "component", nil, "state components to plot (default: first six)")
	cmd.Flags().IntSliceVar(&phase, "phase", nil, "draw component pair x,y as a phase portrait")
	return cmd
}

func newPNGCmd() *cobra.Command {
	var (
		out   string
		phase []int
	)
	cmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render a run to an image (png, svg or pdf by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, states, times, err := loadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = meta.ID + ".png"
			}
			title := fmt.Sprintf("%s / %s", meta.Model, meta.Stepper)

			if len(phase) > 0 {
				if len(phase) != 2 {
					return fmt.Errorf("--phase needs two component indices, got %v", phase)
				}
				portrait, err := analysis.NewPhasePortrait(states, phase[0], phase[1])
				if err != nil {
					return err
				}
				p, err := export.PhasePlot(title, portrait, caption(meta.Model, phase[0]), caption(meta.Model, phase[1]))
				if err != nil {
					return err
				}
				return savePlot(p, out)
			}

			var labels []string
			for i := range states[0] {
				labels = append(labels, caption(meta.Model, i))
			}
			p, err := export.TrajectoryPlot(title, states, times, labels)
			if err != nil {
				return err
			}
			return savePlot(p, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <run_id>.png)")
	cmd.Flags().IntSliceVar(&phase, "phase", nil, "plot component pair x,y as a phase portrait")
	return cmd
}

func savePlot(p *plot.Plot, path string) error {
	if err := export.Save(p, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", path, export.FormatOf(path))
	return nil
}
