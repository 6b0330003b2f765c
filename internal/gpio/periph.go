package gpio

import (
	"fmt"
	"log/slog"
	"sync"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PinInput is an Input backed by a periph.io GPIO pin.
type PinInput struct {
	name string

	mu       sync.Mutex
	pin      pgpio.PinIO
	released bool
}

// Open initialises the host drivers and configures pin as an input with the
// requested pull resistor. Pins are addressed by name, e.g. "GPIO17".
func Open(pin string, pull Pull) (*PinInput, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise GPIO host: %w", err)
	}

	p := gpioreg.ByName(pin)
	if p == nil {
		return nil, fmt.Errorf("unknown GPIO pin %q", pin)
	}

	if err := p.In(periphPull(pull), pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s as input: %w", pin, err)
	}

	slog.Info("GPIO initialised", "pin", pin, "pull", string(pull))
	return &PinInput{name: pin, pin: p}, nil
}

// Read returns the pin level.
func (p *PinInput) Read() (Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released || p.pin == nil {
		return Low, fmt.Errorf("%w: pin %s is not open", ErrHardwareRead, p.name)
	}
	return Level(p.pin.Read() == pgpio.High), nil
}

// Release halts the pin. Calling it more than once is harmless.
func (p *PinInput) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil
	}
	p.released = true

	if err := p.pin.Halt(); err != nil {
		return fmt.Errorf("failed to release %s: %w", p.name, err)
	}
	slog.Debug("GPIO released", "pin", p.name)
	return nil
}

func periphPull(pull Pull) pgpio.Pull {
	switch pull {
	case PullUp:
		return pgpio.PullUp
	case PullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}
