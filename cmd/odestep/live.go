package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/tui"
)

func newLiveCmd() *cobra.Command {
	var (
		flags     runFlags
		frameRate int
		perFrame  int
		endless   bool
	)
	cmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			exp, _, err := newExperiment(cfg)
			if err != nil {
				return err
			}
			limit := cfg.Steps
			if endless {
				limit = 0
			}
			if frameRate < 1 {
				frameRate = 30
			}
			m := tui.NewModel(exp.Model(), exp.Stepper(), exp.InitialState(), tui.Options{
				Name:         cfg.Model,
				Stepper:      cfg.Stepper,
				Tau:          cfg.Tau(),
				Limit:        limit,
				StepsPerTick: perFrame,
				Frame:        time.Second / time.Duration(frameRate),
			})
			return tui.Run(m, tea.WithAltScreen())
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	cmd.Flags().IntVar(&perFrame, "per-frame", 1, "steps per frame")
	cmd.Flags().BoolVar(&endless, "endless", false, "keep stepping past the configured number of steps")
	return cmd
}
