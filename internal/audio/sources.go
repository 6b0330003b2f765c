package audio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Source is a capture device known to the PulseAudio/PipeWire server.
type Source struct {
	Name    string
	Format  string
	State   string
	Monitor bool
}

// ListSources returns the capture sources reported by pactl.
func ListSources() ([]Source, error) {
	cmd := exec.Command("pactl", "list", "short", "sources")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture sources: %w", err)
	}
	return parseSources(string(output)), nil
}

// parseSources parses `pactl list short sources` output: tab separated
// index, name, driver, sample spec and state.
func parseSources(output string) []Source {
	var sources []Source
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		s := Source{Name: strings.TrimSpace(fields[1])}
		if len(fields) > 3 {
			s.Format = strings.TrimSpace(fields[3])
		}
		if len(fields) > 4 {
			s.State = strings.TrimSpace(fields[4])
		}
		s.Monitor = strings.HasSuffix(s.Name, ".monitor")
		sources = append(sources, s)
	}
	return sources
}

// ValidateSource checks that device names exactly one capture source. An
// empty device selects the server default and is always valid.
func ValidateSource(device string, sources []Source) error {
	if device == "" {
		return nil
	}

	var matches []Source
	for _, s := range sources {
		if s.Name == device {
			matches = append(matches, s)
		}
	}

	switch {
	case len(matches) == 0:
		return fmt.Errorf("capture source not found: %s", device)
	case len(matches) > 1:
		return fmt.Errorf("duplicate capture sources detected for '%s': %d entries", device, len(matches))
	case matches[0].Monitor:
		slog.Warn("Capture source is a monitor of an output, callers will not be recorded", "device", device)
	}
	return nil
}
