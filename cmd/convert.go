package cmd

import (
	"github.com/audiolibrelab/hookline/internal/transcode"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output.wav]",
	Short: "Convert an audio file to a WAV announcement",
	Long: `Convert any file FFmpeg can read into a 16-bit PCM WAV file, by default
16 kHz mono, which every playback backend including aplay can play.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, _ := cmd.Flags().GetInt("rate")
		channels, _ := cmd.Flags().GetInt("channels")

		ctx, stop := signalContext()
		defer stop()
		return transcode.ToWAV(ctx, args[0], args[1], rate, channels)
	},
}

func init() {
	convertCmd.Flags().Int("rate", 16000, "output sample rate in Hz (0 keeps the source rate)")
	convertCmd.Flags().Int("channels", 1, "output channel count (0 keeps the source layout)")
}
