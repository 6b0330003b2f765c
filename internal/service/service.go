// Package service assembles the answering machine from its configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/audiolibrelab/hookline/internal/announce"
	"github.com/audiolibrelab/hookline/internal/audio"
	"github.com/audiolibrelab/hookline/internal/config"
	"github.com/audiolibrelab/hookline/internal/controller"
	"github.com/audiolibrelab/hookline/internal/edge"
	"github.com/audiolibrelab/hookline/internal/gpio"
	"github.com/audiolibrelab/hookline/internal/mirror"
	"github.com/audiolibrelab/hookline/internal/play"
	"github.com/audiolibrelab/hookline/internal/transcode"
)

// Options supplies the parts that depend on the host.
type Options struct {
	// Input replaces the configured GPIO pin.
	Input gpio.Input

	// Strategies provides playback strategies by name, in addition to the
	// built-in command players. The in-process "native" player is supplied
	// this way.
	Strategies map[string]play.Strategy
}

// Appliance is a fully wired answering machine.
type Appliance struct {
	cfg        *config.Config
	engine     *play.Engine
	recorder   *audio.Recorder
	controller *controller.Controller
	mirror     *mirror.Mirror
}

// New builds the appliance. The input is opened last so that a
// configuration error never leaves the pin claimed.
func New(cfg *config.Config, opts Options) (*Appliance, error) {
	ctrlCfg, err := ControllerConfig(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, opts.Strategies)
	if err != nil {
		return nil, err
	}
	recorder := NewRecorder(cfg)
	checkDevice(cfg.Recording.Device)

	var m *mirror.Mirror
	if cfg.Sync.Enabled {
		m, err = NewMirror(cfg)
		if err != nil {
			return nil, err
		}
	}

	input := opts.Input
	if input == nil {
		pull, err := gpio.ParsePull(cfg.Input.Pull)
		if err != nil {
			return nil, err
		}
		input, err = gpio.Open(cfg.Input.Pin, pull)
		if err != nil {
			return nil, err
		}
	}

	ctrl, err := controller.New(ctrlCfg, input, engine, recorder, NewSource(cfg))
	if err != nil {
		if rerr := input.Release(); rerr != nil {
			slog.Error("Failed to release input", "error", rerr)
		}
		return nil, err
	}

	return &Appliance{
		cfg:        cfg,
		engine:     engine,
		recorder:   recorder,
		controller: ctrl,
		mirror:     m,
	}, nil
}

// Run plays the startup sound, then answers calls until ctx is cancelled or
// the input fails. Playback, recording and the input are always released.
func (a *Appliance) Run(ctx context.Context) error {
	defer a.controller.Shutdown()

	if sound := a.cfg.Announcement.StartupSound; sound != "" {
		if _, err := a.engine.Play(sound, true); err != nil {
			slog.Warn("Failed to play startup sound", "file", sound, "error", err)
		}
	}

	if a.mirror != nil {
		a.mirror.Start(ctx)
		defer a.mirror.Stop()
	}

	return a.controller.Run(ctx)
}

// Controller exposes the state machine.
func (a *Appliance) Controller() *controller.Controller {
	return a.controller
}

// ControllerConfig maps the configuration onto the controller settings.
func ControllerConfig(cfg *config.Config) (controller.Config, error) {
	trigger, err := edge.Parse(cfg.Controller.TriggerEdge)
	if err != nil {
		return controller.Config{}, err
	}
	return controller.Config{
		Trigger:             trigger,
		SettleDelay:         cfg.Controller.SettleDelay,
		Announce:            cfg.Controller.Announce,
		Record:              cfg.Controller.Record,
		RecordUnconditional: cfg.Controller.RecordUnconditional,
		PollInterval:        cfg.Input.PollInterval,
	}, nil
}

// Strategies resolves the configured strategy names, or the host default
// order when none are configured. Default entries that cannot be built are
// skipped; explicitly configured ones are an error.
func Strategies(cfg *config.Config, extra map[string]play.Strategy) ([]play.Strategy, error) {
	names := cfg.Playback.Strategies
	explicit := len(names) > 0
	if !explicit {
		names = play.HostOrder()
	}

	cache := &transcode.Cache{Dir: cfg.Playback.CacheDir}
	opts := play.BuiltinOptions{OMXOutput: cfg.Playback.OMXOutput, WAVConverter: cache.WAV}

	var strategies []play.Strategy
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if s, ok := extra[name]; ok {
			strategies = append(strategies, s)
			continue
		}
		s, err := play.Builtin(name, opts)
		if err != nil {
			if explicit {
				return nil, err
			}
			slog.Debug("Skipping playback strategy", "backend", name, "error", err)
			continue
		}
		strategies = append(strategies, s)
	}

	if len(strategies) == 0 {
		return nil, errors.New("no playback strategies configured")
	}
	return strategies, nil
}

// NewEngine builds the playback engine.
func NewEngine(cfg *config.Config, extra map[string]play.Strategy) (*play.Engine, error) {
	strategies, err := Strategies(cfg, extra)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}
	slog.Debug("Playback strategies", "order", strings.Join(names, ", "))

	return play.NewEngine(strategies, play.WithStopTimeout(cfg.Playback.StopTimeout)), nil
}

// NewRecorder builds the recording supervisor.
func NewRecorder(cfg *config.Config) *audio.Recorder {
	return audio.NewRecorder(audio.RecorderConfig{
		Directory:   cfg.Recording.Directory,
		Prefix:      cfg.Recording.Prefix,
		Extension:   cfg.Recording.Extension,
		Command:     cfg.Recording.Command,
		Device:      cfg.Recording.Device,
		MinDuration: cfg.Recording.MinDuration,
		StopTimeout: cfg.Recording.StopTimeout,
	})
}

// NewSource picks the announcement: a random event when an events directory
// is configured, the message file otherwise.
func NewSource(cfg *config.Config) announce.Source {
	if cfg.Announcement.EventsDir != "" {
		return announce.NewRandomEvent(cfg.Announcement.EventsDir)
	}
	return announce.Fixed(cfg.Announcement.MessageFile)
}

// NewMirror builds the recording sync job.
func NewMirror(cfg *config.Config) (*mirror.Mirror, error) {
	m, err := mirror.New(mirror.Config{
		Schedule:  cfg.Sync.Schedule,
		Command:   cfg.Sync.Command,
		Directory: cfg.Recording.Directory,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync configuration: %w", err)
	}
	return m, nil
}

// checkDevice warns when the configured capture device is not known to the
// sound server. A host without pactl is not checked.
func checkDevice(device string) {
	if device == "" {
		return
	}
	sources, err := audio.ListSources()
	if err != nil {
		slog.Debug("Cannot list capture sources", "error", err)
		return
	}
	if err := audio.ValidateSource(device, sources); err != nil {
		slog.Warn("Recording device may not work", "device", device, "error", err)
	}
}
