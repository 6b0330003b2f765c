// Package mirror periodically copies the recordings directory to remote
// storage by running an external sync command.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/audiolibrelab/hookline/internal/proc"
)

// Config describes the sync job.
type Config struct {
	// Schedule is a cron expression, a descriptor such as "@every 1m", or a
	// plain duration.
	Schedule string
	// Command is the sync command; "{dir}" is replaced with Directory.
	Command   []string
	Directory string
	// StopTimeout bounds the wait for a cancelled sync to exit.
	StopTimeout time.Duration
}

// Mirror runs the sync command on a schedule, skipping a run while the
// previous one is still going.
type Mirror struct {
	cfg      Config
	schedule cron.Schedule
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New validates cfg and returns a stopped mirror.
func New(cfg Config) (*Mirror, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("no sync command configured")
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}

	logger := cronLogger{}
	m := &Mirror{
		cfg:      cfg,
		schedule: schedule,
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
	}
	m.cron.Schedule(schedule, cron.FuncJob(m.run))
	return m, nil
}

// Args returns the sync command with the directory substituted.
func (m *Mirror) Args() []string {
	args := make([]string, len(m.cfg.Command))
	for i, arg := range m.cfg.Command {
		args[i] = strings.ReplaceAll(arg, "{dir}", m.cfg.Directory)
	}
	return args
}

// RunOnce runs the sync command and waits for it. Cancelling ctx stops the
// command.
func (m *Mirror) RunOnce(ctx context.Context) error {
	args := m.Args()
	slog.Info("Syncing recordings", "directory", m.cfg.Directory, "command", strings.Join(args, " "))

	cmd := proc.Command("sync", args, nil)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start sync %s: %w", args[0], err)
	}

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
		if waitErr != nil {
			return fmt.Errorf("sync failed: %w", waitErr)
		}
		slog.Debug("Sync finished", "directory", m.cfg.Directory)
		return nil
	case <-ctx.Done():
		if err := proc.Stop(cmd.Process, done, m.cfg.StopTimeout); err != nil {
			slog.Warn("Sync did not terminate, killed", "error", err)
		}
		return ctx.Err()
	}
}

func (m *Mirror) run() {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if err := m.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Recording sync failed", "error", err)
	}
}

// Start begins the schedule. The first run happens at the first scheduled
// time, not immediately.
func (m *Mirror) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cron.Start()
	m.started = true
	slog.Info("Recording sync scheduled", "schedule", m.cfg.Schedule, "next", m.schedule.Next(time.Now()).Format(time.TimeOnly))
}

// Stop cancels a running sync and waits for the scheduler to wind down.
func (m *Mirror) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.started = false
	m.mu.Unlock()

	<-m.cron.Stop().Done()
}

// ParseSchedule accepts a cron expression (with descriptors) or a positive
// duration.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, errors.New("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	d, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return constantDelay(d), nil
}

// constantDelay fires at a fixed interval; unlike cron.Every it keeps
// sub-second precision.
type constantDelay time.Duration

func (d constantDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
