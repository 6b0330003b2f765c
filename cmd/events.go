package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/audiolibrelab/hookline/internal/announce"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the event files and whether they are current",
	Long: `List the announcement events in announcement.events_dir and report whether
the day marker (date.yaml) matches today. With --mark the marker is set to
today, which an event generator should do after refreshing the files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Announcement.EventsDir
		if dir == "" {
			return errors.New("announcement.events_dir is not configured")
		}

		now := time.Now()
		if mark, _ := cmd.Flags().GetBool("mark"); mark {
			if err := announce.WriteMarker(dir, announce.MarkerFor(now)); err != nil {
				return err
			}
		}

		marker, err := announce.ReadMarker(dir)
		if err != nil {
			return err
		}
		files, err := announce.Events(dir)
		if err != nil && !errors.Is(err, announce.ErrNoEvents) {
			return err
		}

		fmt.Printf("Events directory: %s\n", dir)
		switch {
		case marker.Day == 0:
			fmt.Println("Day marker: missing")
		case marker.Fresh(now):
			fmt.Printf("Day marker: %d %s (today)\n", marker.Day, marker.Month)
		default:
			fmt.Printf("Day marker: %d %s (stale)\n", marker.Day, marker.Month)
		}

		fmt.Printf("Events (%d found):\n", len(files))
		for i, f := range files {
			fmt.Printf("  %d. %s\n", i+1, filepath.Base(f))
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().Bool("mark", false, "mark the events as generated today")
}
