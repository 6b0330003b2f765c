package cmd

import (
	"fmt"
	"time"

	"github.com/audiolibrelab/hookline/internal/edge"
	"github.com/audiolibrelab/hookline/internal/gpio"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print level changes of GPIO pins",
	Long: `Poll one or more GPIO pins and print every level change. Use it to find
out which pin the hook switch is wired to and which edge means off-hook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pins, _ := cmd.Flags().GetStringSlice("pin")
		if len(pins) == 0 {
			pins = []string{cfg.Input.Pin}
		}
		pull, err := gpio.ParsePull(cfg.Input.Pull)
		if err != nil {
			return err
		}

		detectors := make([]*edge.Detector, 0, len(pins))
		for _, name := range pins {
			input, err := gpio.Open(name, pull)
			if err != nil {
				return err
			}
			defer input.Release()

			d, err := edge.NewDetector(input)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s: %s\n", time.Now().Format(time.TimeOnly), name, d.Level())
			detectors = append(detectors, d)
		}

		ctx, stop := signalContext()
		defer stop()

		ticker := time.NewTicker(cfg.Input.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			for i, d := range detectors {
				e, err := d.Sample()
				if err != nil {
					return err
				}
				if e != edge.None {
					fmt.Printf("%s %s: %s (%s)\n", time.Now().Format(time.TimeOnly), pins[i], d.Level(), e)
				}
			}
		}
	},
}

func init() {
	monitorCmd.Flags().StringSlice("pin", nil, "pins to watch (default is input.pin)")
}
