package cmd

import (
	"fmt"

	"github.com/audiolibrelab/hookline/internal/dial"
	"github.com/audiolibrelab/hookline/internal/gpio"

	"github.com/spf13/cobra"
)

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Decode digits from a rotary dial",
	Long:  `Watch the rotary dial's enable and pulse contacts (dial.enable_pin, dial.pulse_pin) and print each dialed digit.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, err := gpio.Open(cfg.Dial.EnablePin, gpio.PullUp)
		if err != nil {
			return err
		}
		defer enable.Release()

		pulse, err := gpio.Open(cfg.Dial.PulsePin, gpio.PullUp)
		if err != nil {
			return err
		}
		defer pulse.Release()

		ctx, stop := signalContext()
		defer stop()

		fmt.Println("Dial a number - Press Ctrl+C to stop")
		return dial.NewDecoder(enable, pulse).Run(ctx, cfg.Input.PollInterval, func(digit int) {
			fmt.Printf("Number dialed: %d\n", digit)
		})
	},
}
