// Package dial decodes a rotary dial wired to two inputs: an enable contact
// closed (low) while the dial is off its rest position, and a pulse contact
// that opens once per unit.
package dial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/audiolibrelab/hookline/internal/gpio"
)

// NoDigit is reported when the dial returned to rest without pulsing.
const NoDigit = -1

// Decoder counts pulses between enable and release of the dial.
type Decoder struct {
	enable gpio.Input
	pulse  gpio.Input

	enabled   bool
	lastPulse gpio.Level
	count     int
}

// NewDecoder returns a decoder reading the given inputs.
func NewDecoder(enable, pulse gpio.Input) *Decoder {
	return &Decoder{enable: enable, pulse: pulse, lastPulse: gpio.High}
}

// Poll samples both inputs once. When the dial has just returned to rest it
// reports done along with the dialed digit, or NoDigit.
func (d *Decoder) Poll() (digit int, done bool, err error) {
	level, err := d.enable.Read()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read dial enable: %w", err)
	}
	enabled := level == gpio.Low

	if enabled {
		if !d.enabled {
			d.count = 0
		}
		pulse, err := d.pulse.Read()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read dial pulse: %w", err)
		}
		if pulse != d.lastPulse && pulse == gpio.High {
			d.count++
		}
		d.lastPulse = pulse
		d.enabled = true
		return 0, false, nil
	}

	if !d.enabled {
		return 0, false, nil
	}
	d.enabled = false

	switch {
	case d.count == 0:
		return NoDigit, true, nil
	case d.count > 9:
		return 0, true, nil
	default:
		return d.count, true, nil
	}
}

// Run polls every interval and calls fn for each dialed digit until ctx is
// cancelled or an input fails.
func (d *Decoder) Run(ctx context.Context, interval time.Duration, fn func(digit int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		digit, done, err := d.Poll()
		if err != nil {
			return err
		}
		if done {
			if digit == NoDigit {
				slog.Info("No number dialed")
			} else {
				slog.Debug("Digit dialed", "digit", digit)
				fn(digit)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
