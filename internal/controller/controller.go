// Package controller runs the answering machine state machine: it watches the
// hook switch, plays the announcement, records the caller and tears
// everything down when the line is hung up.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/audiolibrelab/hookline/internal/announce"
	"github.com/audiolibrelab/hookline/internal/audio"
	"github.com/audiolibrelab/hookline/internal/edge"
	"github.com/audiolibrelab/hookline/internal/gpio"
	"github.com/audiolibrelab/hookline/internal/play"
)

// State is the controller state.
type State int

const (
	Idle State = iota
	Playing
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Player starts and cancels playback.
type Player interface {
	Play(path string, blocking bool) (play.Handle, error)
	StopAll() bool
}

// Recorder supervises the capture process.
type Recorder interface {
	Start() error
	Stop() (bool, error)
	ForceStop() (bool, error)
	Active() bool
}

// Config selects the deployment variant.
type Config struct {
	// Trigger is the edge that answers the line. The opposite edge hangs up.
	Trigger edge.Edge

	// SettleDelay is waited after the trigger edge before announcing.
	SettleDelay time.Duration

	// Announce plays the announcement before recording. Without it the
	// trigger edge starts recording (or playback when Record is off) at once.
	Announce bool

	// Record enables the recording phase.
	Record bool

	// RecordUnconditional starts recording after the announcement even if
	// the line is no longer off-hook.
	RecordUnconditional bool

	PollInterval time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleep replaces the settle delay wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithTransitionHook registers fn to be called on every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.onTransition = fn
	}
}

// Controller drives the player and recorder from hook switch edges. All
// methods must be called from a single goroutine.
type Controller struct {
	cfg      Config
	input    gpio.Input
	detector *edge.Detector
	player   Player
	recorder Recorder
	source   announce.Source

	state       State
	handle      play.Handle
	pendingStop bool
	closed      bool

	sleep        func(ctx context.Context, d time.Duration) error
	onTransition func(from, to State)
}

// New samples the initial line level and returns an idle controller.
func New(cfg Config, input gpio.Input, player Player, recorder Recorder, source announce.Source, opts ...Option) (*Controller, error) {
	if cfg.Trigger != edge.Rising && cfg.Trigger != edge.Falling {
		return nil, fmt.Errorf("invalid trigger edge: %s", cfg.Trigger)
	}
	if player == nil || recorder == nil || source == nil {
		return nil, errors.New("controller needs a player, a recorder and an announcement source")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}

	detector, err := edge.NewDetector(input)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		input:    input,
		detector: detector,
		player:   player,
		recorder: recorder,
		source:   source,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	slog.Debug("Controller initialised", "level", detector.Level(), "trigger", cfg.Trigger,
		"announce", cfg.Announce, "record", cfg.Record)
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Run polls the line until ctx is cancelled or a fatal error occurs, then
// shuts down. Cancellation is not an error.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Shutdown()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	slog.Info("Waiting for calls", "trigger", c.cfg.Trigger, "level", c.detector.Level())
	for {
		if err := c.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			slog.Info("Shutdown requested")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick samples the line once and advances the state machine. A hang-up edge
// is handled before playback completion so that a call abandoned in the
// same tick never starts recording. Returned errors are fatal.
func (c *Controller) Tick(ctx context.Context) error {
	e, err := c.detector.Sample()
	if err != nil {
		slog.Error("Failed to read line level", "state", c.state, "error", err)
		return err
	}
	if e != edge.None {
		slog.Debug("Edge detected", "edge", e, "seq", c.detector.Seq(), "state", c.state)
	}

	c.retryPendingStop()

	hangup := e == c.cfg.Trigger.Opposite()

	switch c.state {
	case Idle:
		if e == c.cfg.Trigger {
			return c.answer(ctx)
		}

	case Playing:
		if hangup {
			slog.Info("Hang up detected during playback, aborting", "seq", c.detector.Seq())
			c.player.StopAll()
			c.handle = nil
			c.transition(Idle)
			return nil
		}
		if c.handle != nil && c.handle.Alive() {
			return nil
		}
		return c.playbackFinished()

	case Recording:
		if hangup {
			slog.Info("Hang up detected, stopping recording", "seq", c.detector.Seq())
			c.stopRecording()
			c.transition(Idle)
		}
	}
	return nil
}

// answer handles the trigger edge.
func (c *Controller) answer(ctx context.Context) error {
	seq := c.detector.Seq()
	c.releaseLingeringCapture()

	if !c.cfg.Announce {
		if c.cfg.Record {
			slog.Info("Line answered, recording", "seq", seq)
			return c.startRecording()
		}
		slog.Info("Line answered, playing", "seq", seq)
		c.announce(seq)
		return nil
	}

	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return err
	}
	slog.Info("Line answered, playing announcement", "seq", seq)
	c.announce(seq)
	return nil
}

// announce starts the announcement and enters Playing. A missing file keeps
// the controller idle; any other playback failure counts as a playback that
// finished immediately.
func (c *Controller) announce(seq uint64) {
	file, err := c.source.Next()
	if err == nil {
		c.handle, err = c.player.Play(file, false)
	}

	switch {
	case err == nil:
		c.transition(Playing)
	case errors.Is(err, play.ErrFileNotFound), errors.Is(err, announce.ErrNoEvents):
		slog.Error("Announcement not found", "file", file, "seq", seq, "error", err)
	default:
		slog.Error("Announcement playback failed", "file", file, "seq", seq, "error", err)
		c.handle = nil
		c.transition(Playing)
	}
}

func (c *Controller) playbackFinished() error {
	if c.handle != nil {
		slog.Info("Announcement finished", "handle", c.handle.ID(), "backend", c.handle.Backend())
	}
	c.handle = nil

	if !c.cfg.Record {
		c.transition(Idle)
		return nil
	}
	if !c.cfg.RecordUnconditional && c.detector.Level() != c.cfg.Trigger.ActiveLevel() {
		slog.Info("Line released before recording could start")
		c.transition(Idle)
		return nil
	}
	return c.startRecording()
}

func (c *Controller) startRecording() error {
	if err := c.recorder.Start(); err != nil {
		if errors.Is(err, audio.ErrAlreadyRecording) {
			return fmt.Errorf("recorder state corrupted: %w", err)
		}
		slog.Error("Failed to start recording", "error", err)
		c.transition(Idle)
		return nil
	}
	c.transition(Recording)
	return nil
}

// stopRecording asks the recorder to stop. A capture younger than the
// minimum duration keeps running and is stopped on a later tick.
func (c *Controller) stopRecording() {
	stopped, err := c.recorder.Stop()
	if err != nil {
		slog.Error("Failed to stop recording", "error", err)
	}
	if !stopped && c.recorder.Active() {
		slog.Debug("Recording too short to stop, will retry")
		c.pendingStop = true
	}
}

func (c *Controller) retryPendingStop() {
	if !c.pendingStop {
		return
	}
	stopped, err := c.recorder.Stop()
	if err != nil {
		slog.Error("Failed to stop recording", "error", err)
	}
	if stopped || !c.recorder.Active() {
		c.pendingStop = false
	}
}

// releaseLingeringCapture force stops a capture still waiting on its
// minimum duration so a new call can record.
func (c *Controller) releaseLingeringCapture() {
	if !c.pendingStop && !c.recorder.Active() {
		return
	}
	if _, err := c.recorder.ForceStop(); err != nil {
		slog.Error("Failed to stop previous recording", "error", err)
	}
	c.pendingStop = false
}

func (c *Controller) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	slog.Debug("State changed", "from", from, "state", to)
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
}

// Shutdown stops playback and recording, ignoring the minimum duration, and
// releases the input. It is safe to call more than once.
func (c *Controller) Shutdown() {
	if c.closed {
		return
	}
	c.closed = true

	if c.player.StopAll() {
		slog.Info("Playback stopped")
	}
	if _, err := c.recorder.ForceStop(); err != nil {
		slog.Error("Failed to stop recording", "error", err)
	}
	c.pendingStop = false
	c.handle = nil
	c.state = Idle

	if err := c.input.Release(); err != nil {
		slog.Error("Failed to release input", "error", err)
	}
	slog.Info("Input released")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
