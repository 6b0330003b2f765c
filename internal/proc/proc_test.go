//go:build !windows

package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStop_GracefulExit(t *testing.T) {
	cmd := Command("sleep", []string{"sleep", "30"}, nil)
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()

	began := time.Now()
	err := Stop(cmd.Process, done, 2*time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(began), 2*time.Second)

	select {
	case <-done:
	default:
		t.Fatal("process still running after Stop")
	}
}

func TestStop_ForceKillWhenTermIgnored(t *testing.T) {
	cmd := Command("stubborn", []string{"sh", "-c", "trap '' TERM; while :; do sleep 0.05; done"}, nil)
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()

	// Give the shell time to install the trap.
	time.Sleep(200 * time.Millisecond)

	err := Stop(cmd.Process, done, 300*time.Millisecond)
	assert.ErrorIs(t, err, ErrStopTimeout)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process survived kill")
	}
}

func TestStop_AlreadyExited(t *testing.T) {
	cmd := Command("true", []string{"true"}, nil)
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()
	<-done

	assert.NoError(t, Stop(cmd.Process, done, time.Second))
}

func TestLineLogger_SplitsLines(t *testing.T) {
	l := NewLineLogger("test", "stdout")

	n, err := l.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "sec", l.buf.String())

	_, _ = l.Write([]byte("ond\n"))
	assert.Equal(t, "", l.buf.String())
}
