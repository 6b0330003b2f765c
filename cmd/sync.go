package cmd

import (
	"github.com/audiolibrelab/hookline/internal/service"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy recordings to remote storage",
	Long: `Run the sync command (sync.command) against the recording directory on the
sync.schedule until interrupted, or once with --once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := service.NewMirror(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		if once, _ := cmd.Flags().GetBool("once"); once {
			return m.RunOnce(ctx)
		}

		m.Start(ctx)
		<-ctx.Done()
		m.Stop()
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("once", false, "sync once and exit")
}
