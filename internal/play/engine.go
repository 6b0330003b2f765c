package play

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultStopTimeout bounds the wait for a terminated backend to exit.
const DefaultStopTimeout = time.Second

// Engine plays files through the first strategy that succeeds.
type Engine struct {
	strategies  []Strategy
	registry    *Registry
	stopTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry shares an existing registry with the engine.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithStopTimeout sets how long StopAll waits before killing a backend.
func WithStopTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stopTimeout = d
		}
	}
}

// NewEngine returns an engine that tries strategies in order.
func NewEngine(strategies []Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategies:  strategies,
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Play resolves path and starts it on the first strategy that accepts it.
// A non-blocking handle is registered before Play returns; a blocking one has
// already finished and is not registered.
func (e *Engine) Play(path string, blocking bool) (Handle, error) {
	file, err := resolve(path)
	if err != nil {
		return nil, err
	}

	var failures []error
	for _, s := range e.strategies {
		if !s.Available() {
			slog.Debug("Playback backend not available", "backend", s.Name())
			failures = append(failures, fmt.Errorf("%s: not available", s.Name()))
			continue
		}

		h, err := s.Invoke(file, blocking)
		if err != nil {
			slog.Warn("Playback backend failed", "backend", s.Name(), "file", file, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		if !blocking {
			e.registry.Add(h)
		}
		slog.Info("Playback started", "backend", s.Name(), "file", file, "blocking", blocking, "handle", h.ID())
		return h, nil
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("%w for %s: no strategies configured", ErrNoBackendAvailable, file)
	}
	return nil, fmt.Errorf("%w for %s (tried: %s): %w", ErrNoBackendAvailable, file, e.names(), errors.Join(failures...))
}

// StopAll stops everything the engine started asynchronously. It reports
// whether anything was actually playing.
func (e *Engine) StopAll() bool {
	return e.registry.StopAll(e.stopTimeout)
}

// Playing reports whether any registered handle is alive.
func (e *Engine) Playing() bool {
	return len(e.registry.Active()) > 0
}

// Registry returns the registry backing the engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) names() string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}

func resolve(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	return abs, nil
}
