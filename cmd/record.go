package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/hookline/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the capture device until interrupted",
	Long: `Start the configured capture command into a new timestamped file in the
recording directory and stop it on Ctrl+C. Useful to check the microphone
and the recorder command without going through the hook switch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recorder := service.NewRecorder(cfg)
		if err := recorder.Start(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		_, info := recorder.GetStatus()
		if info != nil {
			fmt.Printf("Recording to %s - Press Ctrl+C to stop\n", info.OutputFile)
		}

		ctx, stop := signalContext()
		defer stop()
		<-ctx.Done()

		slog.Info("Stopping recording...")
		if _, err := recorder.ForceStop(); err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		return nil
	},
}
