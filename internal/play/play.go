// Package play starts, tracks and cancels audio playback through an ordered
// list of backend strategies.
package play

import (
	"errors"
)

var (
	// ErrFileNotFound is returned when the file to play does not exist.
	ErrFileNotFound = errors.New("audio file not found")

	// ErrNoBackendAvailable is returned when every strategy refused or failed.
	ErrNoBackendAvailable = errors.New("no playback backend available")

	// ErrUnsupportedFormat is returned by a strategy that cannot decode the file.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Handle identifies one playback attempt.
type Handle interface {
	ID() string
	Backend() string
	Path() string

	// Alive reports whether the backend is still playing. It is evaluated on
	// every call.
	Alive() bool

	// Terminate requests a graceful stop.
	Terminate() error

	// Kill stops playback forcefully.
	Kill() error

	// Done is closed once playback has ended for any reason.
	Done() <-chan struct{}
}

// Strategy is one way of driving audio output.
type Strategy interface {
	Name() string

	// Available reports whether the backend can be used on this host right now.
	Available() bool

	// Invoke starts playing path. With blocking set it returns once playback
	// has finished.
	Invoke(path string, blocking bool) (Handle, error)
}
