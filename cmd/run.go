package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/hookline/internal/play"
	"github.com/audiolibrelab/hookline/internal/play/native"
	"github.com/audiolibrelab/hookline/internal/service"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the answering machine",
	Long: `Poll the hook switch and answer calls until interrupted.

The deployment variant is selected in the controller section of the
configuration: trigger_edge picks the off-hook polarity, announce and
record enable the announcement and recording phases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nativePlayer := native.New()
		defer nativePlayer.Close()

		appliance, err := service.New(cfg, service.Options{
			Strategies: map[string]play.Strategy{"native": nativePlayer},
		})
		if err != nil {
			return fmt.Errorf("failed to start answering machine: %w", err)
		}

		ctx, stop := signalContext()
		defer stop()

		if err := appliance.Run(ctx); err != nil {
			return fmt.Errorf("answering machine stopped: %w", err)
		}
		slog.Info("Answering machine stopped")
		return nil
	},
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
