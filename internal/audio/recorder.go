package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/hookline/internal/proc"
)

// ErrAlreadyRecording is returned by Start while a session is active.
var ErrAlreadyRecording = errors.New("already recording")

// Status represents the current state of the recorder
type Status string

const (
	StatusStandby   Status = "STANDBY"
	StatusRecording Status = "RECORDING"
)

// SessionInfo contains information about the current recording session
type SessionInfo struct {
	OutputFile string    `json:"output_file"`
	StartTime  time.Time `json:"start_time"`
	PID        int       `json:"pid"`
}

// RecorderConfig describes where captures go and how they are made.
type RecorderConfig struct {
	Directory string
	Prefix    string
	Extension string

	// Command is the capture command template. "{file}" is replaced with the
	// destination path (appended when absent) and "{device}" with Device;
	// arguments mentioning "{device}" are dropped when Device is empty.
	Command []string
	Device  string

	// MinDuration is how long a capture must have run before Stop acts.
	MinDuration time.Duration
	StopTimeout time.Duration
}

type session struct {
	file  string
	start time.Time
	cmd   *exec.Cmd
	done  chan struct{}
	err   error
}

func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Recorder supervises at most one capture subprocess.
type Recorder struct {
	cfg RecorderConfig
	now func() time.Time

	mutex   sync.Mutex
	session *session
}

// NewRecorder returns an idle recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.Prefix == "" {
		cfg.Prefix = "capture"
	}
	if cfg.Extension == "" {
		cfg.Extension = "wav"
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	return &Recorder{cfg: cfg, now: time.Now}
}

// Start launches the capture subprocess into a new timestamped file.
func (r *Recorder) Start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.session != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyRecording, r.session.file)
	}
	if len(r.cfg.Command) == 0 {
		return errors.New("no recording command configured")
	}

	if err := os.MkdirAll(r.cfg.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	start := r.now()
	file := r.destination(start)
	args := r.cfg.buildCommand(file)

	cmd := proc.Command("recorder", args, nil)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start recorder %s: %w", args[0], err)
	}

	s := &session{file: file, start: start, cmd: cmd, done: make(chan struct{})}
	go func() {
		s.err = cmd.Wait()
		close(s.done)
	}()
	r.session = s

	slog.Info("Recording started", "file", file, "command", strings.Join(args, " "), "pid", cmd.Process.Pid)
	return nil
}

// Stop ends the active capture. It does nothing, and reports false, when no
// capture is running or when the capture has not yet run for MinDuration.
func (r *Recorder) Stop() (bool, error) {
	return r.stop(false)
}

// ForceStop ends the active capture regardless of its age. It is meant for
// shutdown paths where no child process may be left behind.
func (r *Recorder) ForceStop() (bool, error) {
	return r.stop(true)
}

func (r *Recorder) stop(force bool) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s := r.session
	if s == nil {
		return false, nil
	}

	if !s.alive() {
		r.session = nil
		slog.Warn("Recorder had already exited", "file", s.file, "error", s.err)
		return false, nil
	}

	if elapsed := r.now().Sub(s.start); !force && elapsed <= r.cfg.MinDuration {
		slog.Debug("Ignoring stop, recording too short", "file", s.file, "elapsed", elapsed, "min_duration", r.cfg.MinDuration)
		return false, nil
	}

	slog.Debug("Stopping recording", "file", s.file, "forced", force)
	if err := proc.Stop(s.cmd.Process, s.done, r.cfg.StopTimeout); err != nil {
		slog.Warn("Recorder did not terminate, killed", "file", s.file, "error", err)
	}
	r.session = nil

	slog.Info("Recording saved", "file", s.file, "duration", r.now().Sub(s.start).Round(time.Millisecond))
	return true, nil
}

// Active reports whether a capture subprocess is running.
func (r *Recorder) Active() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.session != nil && r.session.alive()
}

// GetStatus returns the current status and session info
func (r *Recorder) GetStatus() (Status, *SessionInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.session == nil || !r.session.alive() {
		return StatusStandby, nil
	}
	return StatusRecording, &SessionInfo{
		OutputFile: r.session.file,
		StartTime:  r.session.start,
		PID:        r.session.cmd.Process.Pid,
	}
}

// destination names the capture file after its start time, adding a counter
// when a file of that name already exists.
func (r *Recorder) destination(t time.Time) string {
	base := fmt.Sprintf("%s_%s", r.cfg.Prefix, t.Format("20060102_150405"))
	file := filepath.Join(r.cfg.Directory, base+"."+r.cfg.Extension)
	for i := 1; ; i++ {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			return file
		}
		file = filepath.Join(r.cfg.Directory, fmt.Sprintf("%s_%d.%s", base, i, r.cfg.Extension))
	}
}

func (c RecorderConfig) buildCommand(file string) []string {
	args := make([]string, 0, len(c.Command)+1)
	hasFile := false
	for _, arg := range c.Command {
		if strings.Contains(arg, "{device}") {
			if c.Device == "" {
				continue
			}
			arg = strings.ReplaceAll(arg, "{device}", c.Device)
		}
		if strings.Contains(arg, "{file}") {
			hasFile = true
			arg = strings.ReplaceAll(arg, "{file}", file)
		}
		args = append(args, arg)
	}
	if !hasFile {
		args = append(args, file)
	}
	return args
}
