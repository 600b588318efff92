package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "list models and steppers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := experiment.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tDIM\tDESCRIPTION")
			for _, name := range r.ListModels() {
				rhs, err := r.GetModel(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, rhs.DimX(), r.ModelDescription(name))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "STEPPER\tKIND\tDESCRIPTION")
			for _, name := range r.ListSteppers() {
				kind := "explicit"
				if r.IsImplicit(name) {
					kind = "implicit"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, kind, r.StepperDescription(name))
			}
			return w.Flush()
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := config.PresetModels()
			if len(args) > 0 {
				models = args
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tSTEPPER\tDURATION\tSTEPS\tINIT")
			for _, model := range models {
				names := config.ListPresets(model)
				if len(names) == 0 {
					fmt.Fprintf(w, "%s\t(none)\n", model)
					continue
				}
				for _, name := range names {
					p := config.GetPreset(model, name)
					fmt.Fprintf(w, "%s/%s\t%s\t%g\t%d\t%v\n", model, name, p.Stepper, p.Duration, p.Steps, p.InitState)
				}
			}
			return w.Flush()
		},
	}
}

func newConfigCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "config [model] [path]",
		Short: "write the resolved run configuration as YAML",
		Long:  "Resolves presets, config files and flags like `run` does and writes the result, to path or stdout.",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args[:min(len(args), 1)])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				if err := config.Save(args[1], cfg); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", args[1])
				return nil
			}
			return config.Write(os.Stdout, cfg)
		},
	}
	flags.register(cmd)
	return cmd
}
