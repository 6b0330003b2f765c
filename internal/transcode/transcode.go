// Package transcode converts announcement files with ffmpeg.
package transcode

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Binary is the ffmpeg executable used for conversions.
var Binary = "ffmpeg"

// Args returns the ffmpeg arguments converting in to a PCM WAV file at out.
// A zero sampleRate or channels keeps the source value.
func Args(in, out string, sampleRate, channels int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", in, "-vn"}
	if channels > 0 {
		args = append(args, "-ac", strconv.Itoa(channels))
	}
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	return append(args, "-c:a", "pcm_s16le", "-y", out)
}

// ToWAV converts in to a 16-bit PCM WAV file at out.
func ToWAV(ctx context.Context, in, out string, sampleRate, channels int) error {
	if _, err := os.Stat(in); err != nil {
		return fmt.Errorf("input file not found: %s", in)
	}
	if _, err := exec.LookPath(Binary); err != nil {
		return fmt.Errorf("%s not found: %w", Binary, err)
	}

	cmd := exec.CommandContext(ctx, Binary, Args(in, out, sampleRate, channels)...)
	slog.Debug("Running FFmpeg for conversion", "command", strings.Join(cmd.Args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("FFmpeg conversion failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("output file not created: %s", out)
	}

	slog.Info("Converted audio file saved to", "file", out)
	return nil
}

// Cache keeps WAV conversions of non-WAV files so WAV-only players can play
// them. Conversions are keyed by source path, size and modification time.
type Cache struct {
	Dir        string
	SampleRate int
	Channels   int

	mutex sync.Mutex
}

// WAV returns a WAV version of path, converting it on first use.
func (c *Cache) WAV(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("input file not found: %s", path)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d|%d|%d", path, info.Size(), info.ModTime().UnixNano(), c.SampleRate, c.Channels)))
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(c.Dir, base+"-"+hex.EncodeToString(sum[:6])+".wav")

	if _, err := os.Stat(out); err == nil {
		slog.Debug("Using cached conversion", "file", path, "cached", out)
		return out, nil
	}

	tmp := out + ".part.wav"
	if err := ToWAV(context.Background(), path, tmp, c.SampleRate, c.Channels); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", fmt.Errorf("failed to store conversion: %w", err)
	}
	return out, nil
}
