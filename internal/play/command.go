package play

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultStartupWindow is how long a background player is watched after
// launch. A player exiting with an error within it counts as a failed
// strategy.
const DefaultStartupWindow = 250 * time.Millisecond

// Converter turns a file into one a backend can play, returning the new path.
type Converter func(path string) (string, error)

// CommandStrategy plays files by running an external player binary.
type CommandStrategy struct {
	name    string
	binary  string
	args    func(path string) []string
	env     []string
	accepts map[string]bool
	convert Converter
	startup time.Duration

	lookPath func(string) (string, error)
}

// NewCommandStrategy returns a strategy that runs binary with the arguments
// built by args. The file path is passed to args already resolved.
func NewCommandStrategy(name, binary string, args func(path string) []string) *CommandStrategy {
	return &CommandStrategy{
		name:     name,
		binary:   binary,
		args:     args,
		startup:  DefaultStartupWindow,
		lookPath: exec.LookPath,
	}
}

// WithStartupWindow sets how long a background player must survive, or exit
// cleanly, before it counts as started.
func (s *CommandStrategy) WithStartupWindow(d time.Duration) *CommandStrategy {
	s.startup = d
	return s
}

// WithEnv adds environment variables to the player process.
func (s *CommandStrategy) WithEnv(env ...string) *CommandStrategy {
	s.env = append(s.env, env...)
	return s
}

// Accepting limits the strategy to the given file extensions, e.g. ".wav".
// Files with other extensions go through convert when it is set and are
// refused otherwise.
func (s *CommandStrategy) Accepting(convert Converter, exts ...string) *CommandStrategy {
	s.accepts = make(map[string]bool, len(exts))
	for _, ext := range exts {
		s.accepts[strings.ToLower(ext)] = true
	}
	s.convert = convert
	return s
}

func (s *CommandStrategy) Name() string { return s.name }

func (s *CommandStrategy) Available() bool {
	_, err := s.lookPath(s.binary)
	return err == nil
}

func (s *CommandStrategy) Invoke(path string, blocking bool) (Handle, error) {
	file, err := s.prepare(path)
	if err != nil {
		return nil, err
	}

	h, err := startProcess(s.name, path, append([]string{s.binary}, s.args(file)...), s.env)
	if err != nil {
		return nil, err
	}
	if blocking {
		if err := h.wait(); err != nil {
			return nil, err
		}
		return h, nil
	}

	select {
	case <-h.done:
		if err := h.wait(); err != nil {
			return nil, err
		}
	case <-time.After(s.startup):
	}
	return h, nil
}

func (s *CommandStrategy) prepare(path string) (string, error) {
	if s.accepts == nil || s.accepts[strings.ToLower(filepath.Ext(path))] {
		return path, nil
	}
	if s.convert == nil {
		return "", fmt.Errorf("%w: %s cannot play %s", ErrUnsupportedFormat, s.name, filepath.Ext(path))
	}
	converted, err := s.convert(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert %s for %s: %w", path, s.name, err)
	}
	return converted, nil
}

// BuiltinOptions tunes the built-in command strategies.
type BuiltinOptions struct {
	// OMXOutput is omxplayer's audio output: local, hdmi or both.
	OMXOutput string

	// WAVConverter lets WAV-only players play other formats.
	WAVConverter Converter
}

// Builtin returns the command strategy registered under name.
func Builtin(name string, opts BuiltinOptions) (*CommandStrategy, error) {
	switch name {
	case "omxplayer":
		output := opts.OMXOutput
		if output == "" {
			output = "local"
		}
		return NewCommandStrategy(name, "omxplayer", func(p string) []string {
			return []string{"-o", output, p}
		}), nil
	case "aplay":
		return NewCommandStrategy(name, "aplay", func(p string) []string {
			return []string{"-q", p}
		}).Accepting(opts.WAVConverter, ".wav"), nil
	case "mpg123":
		return NewCommandStrategy(name, "mpg123", func(p string) []string {
			return []string{"-q", p}
		}).Accepting(nil, ".mp3"), nil
	case "ffplay":
		return NewCommandStrategy(name, "ffplay", func(p string) []string {
			return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p}
		}), nil
	case "paplay":
		return NewCommandStrategy(name, "paplay", func(p string) []string {
			return []string{p}
		}).Accepting(opts.WAVConverter, ".wav", ".au", ".flac", ".ogg"), nil
	case "afplay":
		return NewCommandStrategy(name, "afplay", func(p string) []string {
			return []string{p}
		}), nil
	case "mpv":
		return NewCommandStrategy(name, "mpv", func(p string) []string {
			return []string{"--no-video", "--really-quiet", p}
		}), nil
	case "vlc":
		return NewCommandStrategy(name, "cvlc", func(p string) []string {
			return []string{"--play-and-exit", "--intf", "dummy", p}
		}), nil
	}
	return nil, fmt.Errorf("unknown playback strategy %q", name)
}

// BuiltinNames lists the names Builtin accepts.
func BuiltinNames() []string {
	return []string{"omxplayer", "aplay", "mpg123", "ffplay", "paplay", "afplay", "mpv", "vlc"}
}

// DefaultOrder returns the strategy order for a platform. Hardware players
// come first on a Raspberry Pi, the in-process decoder next, generic OS
// players last.
func DefaultOrder(goos string, raspberryPi bool) []string {
	switch {
	case goos == "linux" && raspberryPi:
		return []string{"omxplayer", "aplay", "native", "ffplay", "paplay", "mpg123"}
	case goos == "linux":
		return []string{"native", "ffplay", "paplay", "aplay", "mpg123", "mpv", "vlc"}
	case goos == "darwin":
		return []string{"native", "afplay", "ffplay", "mpv", "vlc"}
	default:
		return []string{"native", "ffplay", "mpv", "vlc"}
	}
}

// HostOrder is DefaultOrder for the running host.
func HostOrder() []string {
	return DefaultOrder(runtime.GOOS, IsRaspberryPi())
}

// IsRaspberryPi reports whether the device tree model names a Raspberry Pi.
func IsRaspberryPi() bool {
	model, err := os.ReadFile("/proc/device-tree/model")
	if err != nil {
		return false
	}
	return strings.Contains(string(model), "Raspberry Pi")
}
