package play

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestEngine_FileNotFound(t *testing.T) {
	s := &fakeStrategy{name: "a", available: true}
	e := NewEngine([]Strategy{s})

	_, err := e.Play(filepath.Join(t.TempDir(), "missing.wav"), false)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Equal(t, 0, s.invoked())

	_, err = e.Play(t.TempDir(), false)
	assert.True(t, errors.Is(err, ErrFileNotFound), "directories are not playable")
}

func TestEngine_FallbackOrder(t *testing.T) {
	path := tempAudio(t, "msg.wav")
	missing := &fakeStrategy{name: "missing", available: false}
	broken := &fakeStrategy{name: "broken", available: true, err: errBoom}
	good := &fakeStrategy{name: "good", available: true}
	unused := &fakeStrategy{name: "unused", available: true}

	e := NewEngine([]Strategy{missing, broken, good, unused})
	h, err := e.Play(path, false)
	require.NoError(t, err)

	assert.Equal(t, "good", h.Backend())
	assert.Equal(t, 0, missing.invoked())
	assert.Equal(t, 1, broken.invoked())
	assert.Equal(t, 1, good.invoked())
	assert.Equal(t, 0, unused.invoked())

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, h.Path())
	assert.True(t, e.Playing())
	assert.Len(t, e.Registry().Active(), 1)
}

func TestEngine_NoBackendAvailable(t *testing.T) {
	path := tempAudio(t, "msg.wav")
	e := NewEngine([]Strategy{
		&fakeStrategy{name: "a", available: false},
		&fakeStrategy{name: "b", available: true, err: errBoom},
	})

	_, err := e.Play(path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBackendAvailable))
	assert.True(t, errors.Is(err, errBoom))
	assert.Contains(t, err.Error(), "tried: a, b")
	assert.Equal(t, 0, e.Registry().Len())

	_, err = NewEngine(nil).Play(path, false)
	assert.True(t, errors.Is(err, ErrNoBackendAvailable))
}

func TestEngine_BlockingIsNotRegistered(t *testing.T) {
	path := tempAudio(t, "msg.wav")
	e := NewEngine([]Strategy{&fakeStrategy{name: "a", available: true}})

	h, err := e.Play(path, true)
	require.NoError(t, err)
	assert.False(t, h.Alive())
	assert.Equal(t, 0, e.Registry().Len())
	assert.False(t, e.StopAll())
}

func TestEngine_StopAll(t *testing.T) {
	path := tempAudio(t, "msg.wav")
	s := &fakeStrategy{name: "a", available: true}
	e := NewEngine([]Strategy{s}, WithStopTimeout(50*time.Millisecond))

	assert.False(t, e.StopAll())

	h, err := e.Play(path, false)
	require.NoError(t, err)
	assert.True(t, e.StopAll())
	assert.False(t, h.Alive())
	assert.False(t, e.StopAll())
}

func TestEngine_SharedRegistry(t *testing.T) {
	r := NewRegistry()
	e := NewEngine([]Strategy{&fakeStrategy{name: "a", available: true}}, WithRegistry(r))
	_, err := e.Play(tempAudio(t, "m.wav"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}
