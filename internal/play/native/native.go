// Package native plays audio in-process: files are decoded in Go and written
// to the default PortAudio output device.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/oklog/ulid/v2"

	"github.com/audiolibrelab/hookline/internal/audio/decode"
	"github.com/audiolibrelab/hookline/internal/play"
)

const defaultFramesPerBuffer = 1024

// Strategy is a play.Strategy backed by PortAudio.
type Strategy struct {
	framesPerBuffer int

	initOnce    sync.Once
	initialized bool
	initErr     error
}

// New returns the in-process strategy. PortAudio is initialised lazily on
// the first availability check.
func New() *Strategy {
	return &Strategy{framesPerBuffer: defaultFramesPerBuffer}
}

func (s *Strategy) Name() string { return "native" }

func (s *Strategy) Available() bool {
	s.initOnce.Do(func() {
		s.initialized = true
		s.initErr = portaudio.Initialize()
		if s.initErr != nil {
			slog.Debug("PortAudio unavailable", "error", s.initErr)
		}
	})
	return s.initErr == nil
}

// Close terminates PortAudio if it was initialised.
func (s *Strategy) Close() error {
	if s.initialized && s.initErr == nil {
		return portaudio.Terminate()
	}
	return nil
}

func (s *Strategy) Invoke(path string, blocking bool) (play.Handle, error) {
	src, err := decode.Open(path)
	if err != nil {
		if errors.Is(err, decode.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %v", play.ErrUnsupportedFormat, err)
		}
		return nil, err
	}

	buf := make([]int16, s.framesPerBuffer*src.Channels)
	stream, err := portaudio.OpenDefaultStream(0, src.Channels, float64(src.SampleRate), s.framesPerBuffer, buf)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		src.Close()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:     ulid.Make().String(),
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer src.Close()
		defer stream.Close()

		h.err = pump(ctx, src, stream, buf)
		if err := stream.Stop(); err != nil {
			slog.Debug("Failed to stop output stream", "error", err)
		}
	}()

	if blocking {
		<-h.done
		if h.err != nil {
			return nil, h.err
		}
	}
	return h, nil
}

func pump(ctx context.Context, src *decode.Stream, stream *portaudio.Stream, buf []int16) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := src.Read(buf)
		if n == 0 && errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode failed: %w", err)
		}
		clear(buf[n:])

		if err := stream.Write(); err != nil {
			return fmt.Errorf("write to output stream failed: %w", err)
		}
	}
}

type handle struct {
	id     string
	path   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (h *handle) ID() string      { return h.id }
func (h *handle) Backend() string { return "native" }
func (h *handle) Path() string    { return h.path }

func (h *handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *handle) Terminate() error {
	h.cancel()
	return nil
}

// Kill is the same as Terminate: the pump exits after the buffer in flight.
func (h *handle) Kill() error {
	h.cancel()
	return nil
}

func (h *handle) Done() <-chan struct{} { return h.done }
