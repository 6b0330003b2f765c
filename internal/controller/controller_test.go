package controller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/hookline/internal/announce"
	"github.com/audiolibrelab/hookline/internal/audio"
	"github.com/audiolibrelab/hookline/internal/edge"
	"github.com/audiolibrelab/hookline/internal/gpio"
	"github.com/audiolibrelab/hookline/internal/play"
)

const (
	low  = gpio.Low
	high = gpio.High
)

type harness struct {
	c        *Controller
	input    *gpio.Fake
	player   *fakePlayer
	recorder *fakeRecorder
	sleeps   []time.Duration
	visited  [][2]State
}

func announceOnly() Config {
	return Config{Trigger: edge.Rising, SettleDelay: 500 * time.Millisecond, Announce: true}
}

func announceThenRecord() Config {
	cfg := announceOnly()
	cfg.Record = true
	return cfg
}

func newHarness(t *testing.T, cfg Config, initial gpio.Level) *harness {
	t.Helper()
	h := &harness{
		input:    gpio.NewFake(initial),
		player:   &fakePlayer{},
		recorder: &fakeRecorder{},
	}
	c, err := New(cfg, h.input, h.player, h.recorder, announce.Fixed("message.wav"),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
		WithTransitionHook(func(from, to State) {
			h.visited = append(h.visited, [2]State{from, to})
		}),
	)
	require.NoError(t, err)
	h.c = c
	return h
}

// tick sets the line to level and runs one controller tick.
func (h *harness) tick(t *testing.T, level gpio.Level) {
	t.Helper()
	h.input.Set(level)
	require.NoError(t, h.c.Tick(context.Background()))
}

func TestController_AnnounceOnlyCleanCycle(t *testing.T) {
	h := newHarness(t, announceOnly(), low)

	h.tick(t, high)
	assert.Equal(t, Playing, h.c.State())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, h.sleeps)

	h.tick(t, high)
	assert.Equal(t, Playing, h.c.State(), "still playing while the handle is alive")

	h.player.last().finish()
	h.tick(t, high)

	assert.Equal(t, Idle, h.c.State())
	assert.Equal(t, []string{"message.wav"}, h.player.played)
	assert.Zero(t, h.recorder.starts)
}

func TestController_AbortMidAnnouncement(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)

	h.tick(t, high)
	require.Equal(t, Playing, h.c.State())

	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
	assert.Equal(t, 1, h.player.stopAlls)
	assert.Zero(t, h.player.live())
	assert.Zero(t, h.recorder.starts)

	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
	assert.Equal(t, 1, h.player.stopAlls)
}

func TestController_FullCycleWithRecording(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)

	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, high)
	require.Equal(t, Recording, h.c.State())
	assert.Equal(t, 1, h.recorder.starts)

	h.tick(t, high)
	assert.Equal(t, Recording, h.c.State())

	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
	assert.Equal(t, 1, h.recorder.stops)
	assert.False(t, h.recorder.active)

	assert.Equal(t, [][2]State{{Idle, Playing}, {Playing, Recording}, {Recording, Idle}}, h.visited)
}

func TestController_HangupWinsOverCompletion(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)

	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, low)

	assert.Equal(t, Idle, h.c.State())
	assert.Zero(t, h.recorder.starts, "recording must not start on a hung up line")
}

func TestController_BackendExhaustion(t *testing.T) {
	h := newHarness(t, announceOnly(), low)
	h.player.err = fmt.Errorf("%w for message.wav", play.ErrNoBackendAvailable)

	h.tick(t, high)
	assert.Equal(t, Playing, h.c.State())
	assert.Len(t, h.player.played, 1)

	h.tick(t, high)
	assert.Equal(t, Idle, h.c.State())
	assert.Len(t, h.player.played, 1)
}

func TestController_BackendExhaustionStillRecords(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)
	h.player.err = play.ErrNoBackendAvailable

	h.tick(t, high)
	h.tick(t, high)
	assert.Equal(t, Recording, h.c.State())
}

func TestController_MissingAnnouncementStaysIdle(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)
	h.player.err = fmt.Errorf("%w: /nope.wav", play.ErrFileNotFound)

	h.tick(t, high)
	assert.Equal(t, Idle, h.c.State())

	h.tick(t, high)
	assert.Equal(t, Idle, h.c.State())
	assert.Zero(t, h.recorder.starts)
}

func TestController_NoEventsStaysIdle(t *testing.T) {
	h := newHarness(t, announceOnly(), low)
	c, err := New(announceOnly(), h.input, h.player, h.recorder, announce.NewRandomEvent(t.TempDir()),
		WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)

	h.input.Set(high)
	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, h.player.played)
}

func TestController_PendingStopRetried(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)

	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, high)
	require.Equal(t, Recording, h.c.State())

	h.recorder.guarded = true
	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
	assert.True(t, h.recorder.active, "capture younger than the minimum keeps running")

	h.tick(t, low)
	assert.True(t, h.recorder.active)

	h.recorder.guarded = false
	h.tick(t, low)
	assert.False(t, h.recorder.active)
	stops := h.recorder.stops

	h.tick(t, low)
	assert.Equal(t, stops, h.recorder.stops, "no retries once stopped")
}

func TestController_NewCallReleasesLingeringCapture(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)

	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, high)
	h.recorder.guarded = true
	h.tick(t, low)
	require.True(t, h.recorder.active)

	h.tick(t, high)
	assert.Equal(t, 1, h.recorder.forceStops)
	assert.False(t, h.recorder.active)

	h.player.last().finish()
	h.tick(t, high)
	assert.Equal(t, Recording, h.c.State())
	assert.Equal(t, 2, h.recorder.starts)
}

func TestController_AlreadyRecordingIsFatal(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)
	h.recorder.startErr = fmt.Errorf("%w: x.wav", audio.ErrAlreadyRecording)

	h.tick(t, high)
	h.player.last().finish()
	h.input.Set(high)
	err := h.c.Tick(context.Background())
	assert.True(t, errors.Is(err, audio.ErrAlreadyRecording))
}

func TestController_RecorderStartFailureReturnsIdle(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)
	h.recorder.startErr = errors.New("parecord: not found")

	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, high)
	assert.Equal(t, Idle, h.c.State())
}

func TestController_DirectRecording(t *testing.T) {
	cfg := announceThenRecord()
	cfg.Announce = false
	h := newHarness(t, cfg, low)

	h.tick(t, high)
	assert.Equal(t, Recording, h.c.State())
	assert.Empty(t, h.sleeps, "no settle delay without announcement")
	assert.Empty(t, h.player.played)

	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
}

func TestController_DirectPlayback(t *testing.T) {
	cfg := announceOnly()
	cfg.Announce = false
	h := newHarness(t, cfg, low)

	h.tick(t, high)
	assert.Equal(t, Playing, h.c.State())
	assert.Empty(t, h.sleeps)
	assert.Len(t, h.player.played, 1)
}

func TestController_FallingTrigger(t *testing.T) {
	cfg := announceThenRecord()
	cfg.Trigger = edge.Falling
	h := newHarness(t, cfg, high)

	h.tick(t, low)
	require.Equal(t, Playing, h.c.State())
	h.player.last().finish()
	h.tick(t, low)
	require.Equal(t, Recording, h.c.State())

	h.tick(t, high)
	assert.Equal(t, Idle, h.c.State())
}

func TestController_IgnoresHangupWhenIdle(t *testing.T) {
	h := newHarness(t, announceThenRecord(), high)

	h.tick(t, low)
	assert.Equal(t, Idle, h.c.State())
	assert.Zero(t, h.player.stopAlls)
	assert.Zero(t, h.recorder.stops)
}

func TestController_SettleCancelled(t *testing.T) {
	h := newHarness(t, announceOnly(), low)
	h.c.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.input.Set(high)
	err := h.c.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.player.played)
}

func TestController_HardwareErrorShutsDown(t *testing.T) {
	h := newHarness(t, announceThenRecord(), low)
	h.tick(t, high)
	h.player.last().finish()
	h.tick(t, high)
	require.Equal(t, Recording, h.c.State())

	h.input.FailAt(h.input.Reads())
	err := h.c.Run(context.Background())

	assert.True(t, errors.Is(err, gpio.ErrHardwareRead))
	assert.Equal(t, 1, h.input.Released())
	assert.Equal(t, 1, h.recorder.forceStops)
	assert.False(t, h.recorder.active)
	assert.Equal(t, 1, h.player.stopAlls)
}

func TestController_RunStopsOnCancel(t *testing.T) {
	cfg := announceOnly()
	cfg.PollInterval = time.Millisecond
	h := newHarness(t, cfg, low)
	h.input.Set(high)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, h.c.Run(ctx))
	assert.Equal(t, Idle, h.c.State())
	assert.Equal(t, 1, h.input.Released())
	assert.Zero(t, h.player.live(), "shutdown stops the announcement")

	h.c.Shutdown()
	assert.Equal(t, 1, h.input.Released(), "shutdown runs once")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, gpio.NewFake(), &fakePlayer{}, &fakeRecorder{}, announce.Fixed("m.wav"))
	assert.Error(t, err)

	_, err = New(announceOnly(), gpio.NewFake().FailAt(0), &fakePlayer{}, &fakeRecorder{}, announce.Fixed("m.wav"))
	assert.True(t, errors.Is(err, gpio.ErrHardwareRead))

	_, err = New(announceOnly(), gpio.NewFake(), nil, &fakeRecorder{}, announce.Fixed("m.wav"))
	assert.Error(t, err)
}

// Every transition taken over random level sequences must be a documented
// successor, and at no point may two captures or two announcements coexist.
func TestController_RandomSequences(t *testing.T) {
	allowed := map[[2]State]bool{
		{Idle, Playing}:      true,
		{Playing, Idle}:      true,
		{Playing, Recording}: true,
		{Recording, Idle}:    true,
	}

	variants := map[string]Config{
		"announce-only":   announceOnly(),
		"announce-record": announceThenRecord(),
		"unconditional": func() Config {
			c := announceThenRecord()
			c.RecordUnconditional = true
			return c
		}(),
	}

	for name, cfg := range variants {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			for run := 0; run < 50; run++ {
				h := newHarness(t, cfg, low)
				for i := 0; i < 200; i++ {
					level := gpio.Level(rng.Intn(3) != 0)
					if h.c.State() == Playing && rng.Intn(4) == 0 {
						h.player.last().finish()
					}
					h.recorder.guarded = rng.Intn(3) == 0

					h.tick(t, level)

					assert.LessOrEqual(t, h.player.live(), 1)
					if h.c.State() == Recording {
						assert.True(t, h.recorder.active)
					}
					if !cfg.Record {
						assert.Zero(t, h.recorder.starts)
					}
				}
				for _, tr := range h.visited {
					assert.True(t, allowed[tr], "unexpected transition %s -> %s", tr[0], tr[1])
				}
			}
		})
	}
}

func TestDirectVariantTransitions(t *testing.T) {
	cfg := announceThenRecord()
	cfg.Announce = false
	h := newHarness(t, cfg, low)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		h.recorder.guarded = rng.Intn(2) == 0
		h.tick(t, gpio.Level(rng.Intn(2) == 0))
	}
	for _, tr := range h.visited {
		assert.Contains(t, [][2]State{{Idle, Recording}, {Recording, Idle}}, tr)
	}
}
