package gpio

import (
	"fmt"
	"sync"
)

// Fake is a scripted Input. Each Read returns the next level of the script;
// once the script is exhausted the last level repeats.
type Fake struct {
	mu       sync.Mutex
	levels   []Level
	reads    int
	failAt   int
	released int
}

// NewFake returns a Fake that plays back levels in order.
func NewFake(levels ...Level) *Fake {
	if len(levels) == 0 {
		levels = []Level{Low}
	}
	return &Fake{levels: levels, failAt: -1}
}

// FailAt makes the read with the given zero-based index, and every read after
// it, fail with ErrHardwareRead.
func (f *Fake) FailAt(read int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = read
	return f
}

// Set discards the unread part of the script and makes level the next level
// read. It then repeats like the last level of any script.
func (f *Fake) Set(level Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels[:min(f.reads, len(f.levels))], level)
}

func (f *Fake) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.reads
	f.reads++

	if f.failAt >= 0 && idx >= f.failAt {
		return Low, fmt.Errorf("%w: scripted failure at read %d", ErrHardwareRead, idx)
	}
	if idx >= len(f.levels) {
		return f.levels[len(f.levels)-1], nil
	}
	return f.levels[idx], nil
}

func (f *Fake) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

// Reads reports how many times Read was called.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Released reports how many times Release was called.
func (f *Fake) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}
