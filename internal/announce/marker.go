package announce

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MarkerFile is the name of the day marker kept next to the event files.
const MarkerFile = "date.yaml"

// Marker records the day the event files were last generated for.
type Marker struct {
	Day   int    `yaml:"day"`
	Month string `yaml:"month"`
}

// MarkerFor returns the marker describing t.
func MarkerFor(t time.Time) Marker {
	return Marker{Day: t.Day(), Month: strings.ToLower(t.Month().String())}
}

// Fresh reports whether the marker matches the calendar day of now.
func (m Marker) Fresh(now time.Time) bool {
	return m == MarkerFor(now)
}

// ReadMarker loads the marker from dir. A missing file yields the zero
// marker and no error; it is never fresh.
func ReadMarker(dir string) (Marker, error) {
	var m Marker
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return m, fmt.Errorf("failed to read day marker: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse day marker: %w", err)
	}
	return m, nil
}

// WriteMarker stores m in dir.
func WriteMarker(dir string, m Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode day marker: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write day marker: %w", err)
	}
	return nil
}
