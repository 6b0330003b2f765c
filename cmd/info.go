package cmd

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/hookline/internal/play"
	"github.com/audiolibrelab/hookline/internal/play/native"
	"github.com/audiolibrelab/hookline/internal/service"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the resolved deployment: variant, files and playback backends",
	Long:  `Display which deployment variant the configuration selects, the files it announces and records to, and which playback backends are available on this host in the order they will be tried.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := service.ControllerConfig(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("=== CONTROLLER ===\n")
		fmt.Printf("variant: %s\n", variantName(cfg.Controller.Announce, cfg.Controller.Record))
		fmt.Printf("pin: %s (pull %s, poll %s)\n", cfg.Input.Pin, cfg.Input.Pull, cfg.Input.PollInterval)
		fmt.Printf("off-hook edge: %s, hang-up edge: %s\n", ctrl.Trigger, ctrl.Trigger.Opposite())
		fmt.Printf("settle delay: %s\n", ctrl.SettleDelay)
		if cfg.Controller.Record {
			fmt.Printf("record after announcement: %s\n", map[bool]string{true: "always", false: "only while off-hook"}[cfg.Controller.RecordUnconditional])
		}

		fmt.Printf("\n=== FILES ===\n")
		if cfg.Announcement.EventsDir != "" {
			fmt.Printf("announcement: random event from %s\n", cfg.Announcement.EventsDir)
		} else {
			fmt.Printf("announcement: %s\n", cfg.Announcement.MessageFile)
		}
		if cfg.Announcement.StartupSound != "" {
			fmt.Printf("startup sound: %s\n", cfg.Announcement.StartupSound)
		}
		fmt.Printf("recordings: %s/%s_YYYYMMDD_HHMMSS.%s (min %s)\n",
			cfg.Recording.Directory, cfg.Recording.Prefix, cfg.Recording.Extension, cfg.Recording.MinDuration)
		fmt.Printf("record command: %s\n", strings.Join(cfg.Recording.Command, " "))

		nativePlayer := native.New()
		defer nativePlayer.Close()

		strategies, err := service.Strategies(cfg, map[string]play.Strategy{"native": nativePlayer})
		if err != nil {
			return err
		}

		fmt.Printf("\n=== PLAYBACK BACKENDS ===\n")
		for i, s := range strategies {
			status := "missing"
			if s.Available() {
				status = "available"
			}
			fmt.Printf("%d. %s [%s]\n", i+1, s.Name(), status)
		}
		return nil
	},
}

func variantName(announce, record bool) string {
	switch {
	case announce && record:
		return "announce-then-record"
	case announce:
		return "announce-only"
	case record:
		return "record-only"
	default:
		return "play-on-trigger"
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
