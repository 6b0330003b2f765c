//go:build !windows

package transcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg installs a script that copies the -i input to the last argument
// and counts its invocations.
func fakeFFmpeg(t *testing.T) (counter string) {
	t.Helper()
	dir := t.TempDir()
	counter = filepath.Join(dir, "calls")
	script := `#!/bin/sh
in=""
while [ $# -gt 1 ]; do
  if [ "$1" = "-i" ]; then in="$2"; fi
  shift
done
echo x >> "` + counter + `"
cp "$in" "$1"
`
	bin := filepath.Join(dir, "ffmpeg-fake")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))

	old := Binary
	Binary = bin
	t.Cleanup(func() { Binary = old })
	return counter
}

func calls(t *testing.T, counter string) int {
	data, err := os.ReadFile(counter)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-hide_banner", "-loglevel", "error", "-i", "in.mp3", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", "-y", "out.wav"},
		Args("in.mp3", "out.wav", 16000, 1))
	assert.Equal(t,
		[]string{"-hide_banner", "-loglevel", "error", "-i", "in.mp3", "-vn", "-c:a", "pcm_s16le", "-y", "out.wav"},
		Args("in.mp3", "out.wav", 0, 0))
}

func TestToWAV(t *testing.T) {
	fakeFFmpeg(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "msg.mp3")
	require.NoError(t, os.WriteFile(in, []byte("audio"), 0644))

	out := filepath.Join(dir, "msg.wav")
	require.NoError(t, ToWAV(context.Background(), in, out, 16000, 1))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestToWAV_MissingInput(t *testing.T) {
	fakeFFmpeg(t)
	err := ToWAV(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), "out.wav", 0, 0)
	assert.ErrorContains(t, err, "input file not found")
}

func TestCache_ReusesConversion(t *testing.T) {
	counter := fakeFFmpeg(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "event.mp3")
	require.NoError(t, os.WriteFile(in, []byte("audio"), 0644))

	cache := &Cache{Dir: filepath.Join(dir, "cache"), SampleRate: 44100, Channels: 2}

	first, err := cache.WAV(in)
	require.NoError(t, err)
	assert.Equal(t, ".wav", filepath.Ext(first))
	assert.FileExists(t, first)

	second, err := cache.WAV(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls(t, counter))
}
