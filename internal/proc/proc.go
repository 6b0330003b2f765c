// Package proc holds the subprocess plumbing shared by the players, the
// recorder and the sync job: session detachment, signalling and output
// logging.
package proc

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrStopTimeout is returned by Stop when the process ignored the graceful
// request and had to be killed.
var ErrStopTimeout = errors.New("process did not exit in time")

// Command builds an exec.Cmd detached from the caller's session with its
// output routed to the debug log under label.
func Command(label string, args []string, env []string) *exec.Cmd {
	cmd := exec.Command(args[0], args[1:]...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.Stdout = NewLineLogger(label, "stdout")
	cmd.Stderr = NewLineLogger(label, "stderr")
	Detach(cmd)
	return cmd
}

// Stop asks p to exit, waits up to timeout for done to close and kills the
// process group if it does not. done must be closed once Wait has returned.
func Stop(p *os.Process, done <-chan struct{}, timeout time.Duration) error {
	if err := Terminate(p); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		slog.Debug("Failed to send terminate, falling back to kill", "pid", p.Pid, "error", err)
		_ = Kill(p)
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	slog.Warn("Process did not exit within timeout, force killing", "pid", p.Pid, "timeout", timeout)
	_ = Kill(p)

	select {
	case <-done:
	case <-time.After(timeout):
		slog.Error("Process still running after kill", "pid", p.Pid)
	}
	return ErrStopTimeout
}

// LineLogger is an io.Writer that logs each complete line at debug level.
type LineLogger struct {
	label  string
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineLogger returns a writer tagged with a process label and stream name.
func NewLineLogger(label, stream string) *LineLogger {
	return &LineLogger{label: label, stream: stream}
}

func (l *LineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// Incomplete line, keep it for the next write.
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		if s := strings.TrimRight(line, "\r\n"); s != "" {
			slog.Debug("Process output", "process", l.label, "stream", l.stream, "line", s)
		}
	}
	return len(p), nil
}
