// Package announce picks the audio file played when the line is answered.
package announce

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoEvents is returned when an event directory holds no playable file.
var ErrNoEvents = errors.New("no event files")

// Source yields the next file to announce.
type Source interface {
	Next() (string, error)
}

// Fixed always announces the same message file.
type Fixed string

// Next returns the message file.
func (f Fixed) Next() (string, error) {
	return string(f), nil
}

// RandomEvent announces a random *.mp3 or *.wav file from Dir, re-scanned on
// every call so regenerated events are picked up without a restart.
type RandomEvent struct {
	Dir string

	intn func(n int) int
}

// NewRandomEvent returns a source drawing from dir.
func NewRandomEvent(dir string) *RandomEvent {
	return &RandomEvent{Dir: dir, intn: rand.IntN}
}

// Next returns a randomly chosen event file.
func (r *RandomEvent) Next() (string, error) {
	files, err := Events(r.Dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoEvents, r.Dir)
	}
	intn := r.intn
	if intn == nil {
		intn = rand.IntN
	}
	return files[intn(len(files))], nil
}

// Events lists the playable files in dir, sorted by name.
func Events(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoEvents, dir)
		}
		return nil, fmt.Errorf("failed to read events directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp3", ".wav":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
