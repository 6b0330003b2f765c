package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/hookline/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	profile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "hookline",
	Short: "Telephone answering machine driven by a hook switch",
	Long: `Hookline turns a telephone handset wired to a GPIO pin into an
answering machine or announcer.

Lifting the handset plays an announcement (a fixed message or a random
event of the day), then optionally records the caller until the handset
is put back. Hanging up aborts playback or recording at any point.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel)

		// These commands work without configuration unless one is given explicitly
		if (cmd.Name() == "sources" || cmd.Name() == "convert") && cfgFile == "" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile, profile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.File != "" {
			slog.Debug("Configuration loaded", "file", cfg.File, "profile", cfg.ActiveConfig)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hookline.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_config from file)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug (includes player and recorder output)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(dialCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}
