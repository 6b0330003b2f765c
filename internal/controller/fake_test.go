package controller

import (
	"fmt"

	"github.com/audiolibrelab/hookline/internal/audio"
	"github.com/audiolibrelab/hookline/internal/play"
)

type fakeHandle struct {
	id    string
	path  string
	alive bool
	done  chan struct{}
}

func (h *fakeHandle) ID() string      { return h.id }
func (h *fakeHandle) Backend() string { return "fake" }
func (h *fakeHandle) Path() string    { return h.path }
func (h *fakeHandle) Alive() bool     { return h.alive }

func (h *fakeHandle) Terminate() error {
	h.finish()
	return nil
}

func (h *fakeHandle) Kill() error {
	h.finish()
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) finish() {
	if h.alive {
		h.alive = false
		close(h.done)
	}
}

type fakePlayer struct {
	err      error
	played   []string
	handles  []*fakeHandle
	stopAlls int
}

func (p *fakePlayer) Play(path string, blocking bool) (play.Handle, error) {
	p.played = append(p.played, path)
	if p.err != nil {
		return nil, p.err
	}
	h := &fakeHandle{id: fmt.Sprintf("h%d", len(p.handles)), path: path, alive: true, done: make(chan struct{})}
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) StopAll() bool {
	p.stopAlls++
	stopped := false
	for _, h := range p.handles {
		if h.alive {
			h.finish()
			stopped = true
		}
	}
	return stopped
}

// live counts handles still playing.
func (p *fakePlayer) live() int {
	n := 0
	for _, h := range p.handles {
		if h.alive {
			n++
		}
	}
	return n
}

// last returns the most recent handle.
func (p *fakePlayer) last() *fakeHandle {
	return p.handles[len(p.handles)-1]
}

// fakeRecorder mimics the recorder's guard: while guarded, Stop leaves the
// capture running.
type fakeRecorder struct {
	active   bool
	guarded  bool
	startErr error

	starts, stops, forceStops int
}

func (r *fakeRecorder) Start() error {
	r.starts++
	if r.startErr != nil {
		return r.startErr
	}
	if r.active {
		return audio.ErrAlreadyRecording
	}
	r.active = true
	return nil
}

func (r *fakeRecorder) Stop() (bool, error) {
	r.stops++
	if !r.active || r.guarded {
		return false, nil
	}
	r.active = false
	return true, nil
}

func (r *fakeRecorder) ForceStop() (bool, error) {
	r.forceStops++
	if !r.active {
		return false, nil
	}
	r.active = false
	return true, nil
}

func (r *fakeRecorder) Active() bool { return r.active }
