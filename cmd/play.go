package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/hookline/internal/play"
	"github.com/audiolibrelab/hookline/internal/play/native"
	"github.com/audiolibrelab/hookline/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Play an audio file through the playback fallback chain",
	Long: `Play a file with the first playback backend that works on this host,
using the same strategy order as the answering machine. Without --wait the
file plays in the background and Ctrl+C stops it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		nativePlayer := native.New()
		defer nativePlayer.Close()

		engine, err := service.NewEngine(cfg, map[string]play.Strategy{"native": nativePlayer})
		if err != nil {
			return err
		}

		handle, err := engine.Play(args[0], wait)
		if err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		fmt.Printf("Playing %s with %s\n", handle.Path(), handle.Backend())
		if wait {
			return nil
		}

		ctx, stop := signalContext()
		defer stop()

		select {
		case <-handle.Done():
		case <-ctx.Done():
			if engine.Playing() {
				slog.Info("Stopping playback...")
				engine.StopAll()
			}
		}
		return nil
	},
}

func init() {
	playCmd.Flags().Bool("wait", false, "block in the backend until playback has finished")
}
