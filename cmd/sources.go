package cmd

import (
	"fmt"

	"github.com/audiolibrelab/hookline/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available capture sources",
	Long:  `List the capture sources known to the PulseAudio/PipeWire server, for use as recording.device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := audio.ListSources()
		if err != nil {
			return err
		}

		fmt.Printf("Capture sources (%d found):\n", len(sources))
		for i, s := range sources {
			note := ""
			if s.Monitor {
				note = " (monitor)"
			}
			fmt.Printf("  %d. %s%s\n", i+1, s.Name, note)
			if s.Format != "" {
				fmt.Printf("     %s, %s\n", s.Format, s.State)
			}
		}

		if cfg != nil && cfg.Recording.Device != "" {
			if err := audio.ValidateSource(cfg.Recording.Device, sources); err != nil {
				fmt.Printf("\nConfigured device: %v\n", err)
			} else {
				fmt.Printf("\nConfigured device %s is available\n", cfg.Recording.Device)
			}
		}
		return nil
	},
}
