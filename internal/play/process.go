package play

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/audiolibrelab/hookline/internal/proc"
)

// processHandle tracks a player subprocess.
type processHandle struct {
	id      string
	backend string
	path    string

	cmd  *exec.Cmd
	done chan struct{}
	err  error

	// stopping is set once termination was requested, so the exit status of
	// a stopped player is not reported as a failure.
	stopping atomic.Bool
}

func startProcess(backend, path string, args, env []string) (*processHandle, error) {
	cmd := proc.Command(backend, args, env)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	h := &processHandle{
		id:      ulid.Make().String(),
		backend: backend,
		path:    path,
		cmd:     cmd,
		done:    make(chan struct{}),
	}
	go func() {
		h.err = cmd.Wait()
		if h.err != nil && !h.stopping.Load() {
			slog.Warn("Player exited with error", "backend", backend, "file", path, "handle", h.id, "error", h.err)
		}
		close(h.done)
	}()
	return h, nil
}

func (h *processHandle) ID() string      { return h.id }
func (h *processHandle) Backend() string { return h.backend }
func (h *processHandle) Path() string    { return h.path }

func (h *processHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *processHandle) Terminate() error {
	h.stopping.Store(true)
	return proc.Terminate(h.cmd.Process)
}

func (h *processHandle) Kill() error {
	h.stopping.Store(true)
	return proc.Kill(h.cmd.Process)
}

func (h *processHandle) Done() <-chan struct{} {
	return h.done
}

// wait blocks until the process exits and returns its exit error.
func (h *processHandle) wait() error {
	<-h.done
	if h.err != nil {
		return fmt.Errorf("%s exited: %w (command: %s)", h.backend, h.err, strings.Join(h.cmd.Args, " "))
	}
	return nil
}
