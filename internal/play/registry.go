package play

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Registry holds the playback handles started asynchronously. It is the only
// authority on whether anything is playing.
type Registry struct {
	mu      sync.Mutex
	handles map[string]Handle
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Add registers h and drops it again once it reports completion.
func (r *Registry) Add(h Handle) {
	r.mu.Lock()
	if _, exists := r.handles[h.ID()]; !exists {
		r.order = append(r.order, h.ID())
	}
	r.handles[h.ID()] = h
	r.mu.Unlock()

	go func() {
		<-h.Done()
		r.remove(h.ID())
		slog.Debug("Playback finished", "handle", h.ID(), "backend", h.Backend(), "file", h.Path())
	}()
}

// Active returns the registered handles that are still alive, oldest first.
func (r *Registry) Active() []Handle {
	var active []Handle
	for _, h := range r.snapshot() {
		if h.Alive() {
			active = append(active, h)
		}
	}
	return active
}

// Len returns the number of registered handles, alive or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// StopAll terminates every live handle, escalating to a kill when a handle
// does not finish within timeout, and empties the registry. It reports
// whether at least one handle was actually stopped.
func (r *Registry) StopAll(timeout time.Duration) bool {
	stopped := false

	for _, h := range r.snapshot() {
		if !h.Alive() {
			r.remove(h.ID())
			continue
		}

		if err := h.Terminate(); err != nil {
			if errors.Is(err, os.ErrProcessDone) || !h.Alive() {
				// Finished on its own between the check and the request.
				r.remove(h.ID())
				continue
			}
			slog.Warn("Failed to terminate playback, killing", "handle", h.ID(), "backend", h.Backend(), "error", err)
			_ = h.Kill()
		}

		select {
		case <-h.Done():
		case <-time.After(timeout):
			slog.Warn("Playback did not stop within timeout, force killing", "handle", h.ID(), "backend", h.Backend(), "timeout", timeout)
			if err := h.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Error("Failed to kill playback", "handle", h.ID(), "backend", h.Backend(), "error", err)
			}
			select {
			case <-h.Done():
			case <-time.After(timeout):
				slog.Error("Playback still running after kill", "handle", h.ID(), "backend", h.Backend())
			}
		}

		r.remove(h.ID())
		stopped = true
		slog.Info("Playback stopped", "handle", h.ID(), "backend", h.Backend(), "file", h.Path())
	}

	return stopped
}

func (r *Registry) snapshot() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]Handle, 0, len(r.order))
	for _, id := range r.order {
		handles = append(handles, r.handles[id])
	}
	return handles
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handles[id]; !ok {
		return
	}
	delete(r.handles, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
