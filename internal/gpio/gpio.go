// Package gpio provides the digital input the appliance polls.
// The real implementation uses periph.io on the host's GPIO controller.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHardwareRead is returned when the monitored line cannot be read.
var ErrHardwareRead = errors.New("hardware read error")

// Level is the logic level of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Pull selects the internal resistor applied to an input line.
type Pull string

const (
	PullUp   Pull = "up"
	PullDown Pull = "down"
	PullNone Pull = "none"
)

// ParsePull parses a pull resistor mode as written in configuration.
func ParsePull(s string) (Pull, error) {
	switch Pull(strings.ToLower(strings.TrimSpace(s))) {
	case PullUp:
		return PullUp, nil
	case PullDown:
		return PullDown, nil
	case PullNone, "":
		return PullNone, nil
	}
	return "", fmt.Errorf("invalid pull mode %q (expected up, down or none)", s)
}

// Input reads the current level of one monitored line.
type Input interface {
	// Read returns the current level. Errors wrap ErrHardwareRead.
	Read() (Level, error)

	// Release returns the line to the system. It is called once at shutdown.
	Release() error
}
