package play

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var handleSeq atomic.Int64

type fakeHandle struct {
	id      string
	backend string
	path    string

	mu          sync.Mutex
	done        chan struct{}
	closed      bool
	ignoreTerm  bool
	terminates  int
	kills       int
	terminateFn func(*fakeHandle) error
}

func newFakeHandle(backend, path string) *fakeHandle {
	return &fakeHandle{
		id:      fmt.Sprintf("h%d", handleSeq.Add(1)),
		backend: backend,
		path:    path,
		done:    make(chan struct{}),
	}
}

func (h *fakeHandle) ID() string      { return h.id }
func (h *fakeHandle) Backend() string { return h.backend }
func (h *fakeHandle) Path() string    { return h.path }

func (h *fakeHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

func (h *fakeHandle) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

func (h *fakeHandle) Terminate() error {
	h.mu.Lock()
	h.terminates++
	fn := h.terminateFn
	ignore := h.ignoreTerm
	h.mu.Unlock()

	if fn != nil {
		return fn(h)
	}
	if !ignore {
		h.finish()
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	h.kills++
	h.mu.Unlock()
	h.finish()
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminates, h.kills
}

type fakeStrategy struct {
	name      string
	available bool
	err       error

	mu      sync.Mutex
	invokes int
	started []*fakeHandle
}

func (s *fakeStrategy) Name() string    { return s.name }
func (s *fakeStrategy) Available() bool { return s.available }

func (s *fakeStrategy) Invoke(path string, blocking bool) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokes++
	if s.err != nil {
		return nil, s.err
	}
	h := newFakeHandle(s.name, path)
	if blocking {
		h.finish()
	}
	s.started = append(s.started, h)
	return h, nil
}

func (s *fakeStrategy) invoked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invokes
}

var errBoom = errors.New("boom")
