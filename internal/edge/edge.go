// Package edge classifies successive samples of a digital input.
package edge

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/hookline/internal/gpio"
)

// Edge is the transition observed between two samples.
type Edge int

const (
	None Edge = iota
	Rising
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "none"
	}
}

// Opposite returns the edge of the reverse transition. None has no opposite.
func (e Edge) Opposite() Edge {
	switch e {
	case Rising:
		return Falling
	case Falling:
		return Rising
	default:
		return None
	}
}

// ActiveLevel is the level the line rests at after e has occurred.
func (e Edge) ActiveLevel() gpio.Level {
	return e == Rising
}

// Parse parses "rising" or "falling".
func Parse(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising":
		return Rising, nil
	case "falling":
		return Falling, nil
	}
	return None, fmt.Errorf("invalid edge %q (expected rising or falling)", s)
}

// Classify derives the edge from a previous and current level.
func Classify(previous, current gpio.Level) Edge {
	switch {
	case previous == gpio.Low && current == gpio.High:
		return Rising
	case previous == gpio.High && current == gpio.Low:
		return Falling
	default:
		return None
	}
}

// Detector samples an input and reports edges against the previous sample.
// It is not safe for concurrent use.
type Detector struct {
	input    gpio.Input
	previous gpio.Level
	seq      uint64
}

// NewDetector reads the initial level from input.
func NewDetector(input gpio.Input) (*Detector, error) {
	level, err := input.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read initial level: %w", err)
	}
	return &Detector{input: input, previous: level}, nil
}

// Sample reads the input once and classifies it.
func (d *Detector) Sample() (Edge, error) {
	level, err := d.input.Read()
	if err != nil {
		return None, err
	}

	e := Classify(d.previous, level)
	d.previous = level
	if e != None {
		d.seq++
	}
	return e, nil
}

// Level is the level seen by the most recent sample.
func (d *Detector) Level() gpio.Level {
	return d.previous
}

// Seq counts the edges observed so far.
func (d *Detector) Seq() uint64 {
	return d.seq
}
