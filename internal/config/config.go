package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: HOOKLINE_RECORDING_DIRECTORY
// overrides recording.directory.
const EnvPrefix = "HOOKLINE"

// DotEnvFile is loaded into the environment before the configuration, when
// present.
var DotEnvFile = ".env"

type Config struct {
	// ActiveConfig names the profile under configs applied over the base.
	ActiveConfig string `mapstructure:"active_config" yaml:"active_config,omitempty"`

	Input        InputConfig        `mapstructure:"input" yaml:"input"`
	Controller   ControllerConfig   `mapstructure:"controller" yaml:"controller"`
	Announcement AnnouncementConfig `mapstructure:"announcement" yaml:"announcement"`
	Playback     PlaybackConfig     `mapstructure:"playback" yaml:"playback"`
	Recording    RecordingConfig    `mapstructure:"recording" yaml:"recording"`
	Sync         SyncConfig         `mapstructure:"sync" yaml:"sync"`
	Dial         DialConfig         `mapstructure:"dial" yaml:"dial"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

type InputConfig struct {
	Pin          string        `mapstructure:"pin" yaml:"pin"`
	Pull         string        `mapstructure:"pull" yaml:"pull"` // "up", "down", "none"
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type ControllerConfig struct {
	TriggerEdge         string        `mapstructure:"trigger_edge" yaml:"trigger_edge"` // "rising", "falling"
	SettleDelay         time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Announce            bool          `mapstructure:"announce" yaml:"announce"`
	Record              bool          `mapstructure:"record" yaml:"record"`
	RecordUnconditional bool          `mapstructure:"record_unconditional" yaml:"record_unconditional"`
}

type AnnouncementConfig struct {
	MessageFile  string `mapstructure:"message_file" yaml:"message_file"`
	EventsDir    string `mapstructure:"events_dir" yaml:"events_dir"`
	StartupSound string `mapstructure:"startup_sound" yaml:"startup_sound"`
}

type PlaybackConfig struct {
	Strategies  []string      `mapstructure:"strategies" yaml:"strategies"` // empty = platform default order
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	OMXOutput   string        `mapstructure:"omx_output" yaml:"omx_output"` // "local", "hdmi", "both"
	CacheDir    string        `mapstructure:"cache_dir" yaml:"cache_dir"`
}

type RecordingConfig struct {
	Directory   string        `mapstructure:"directory" yaml:"directory"`
	Prefix      string        `mapstructure:"prefix" yaml:"prefix"`
	Extension   string        `mapstructure:"extension" yaml:"extension"`
	Command     []string      `mapstructure:"command" yaml:"command"`
	Device      string        `mapstructure:"device" yaml:"device"`
	MinDuration time.Duration `mapstructure:"min_duration" yaml:"min_duration"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

type SyncConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Schedule string   `mapstructure:"schedule" yaml:"schedule"`
	Command  []string `mapstructure:"command" yaml:"command"`
}

type DialConfig struct {
	EnablePin string `mapstructure:"enable_pin" yaml:"enable_pin"`
	PulsePin  string `mapstructure:"pulse_pin" yaml:"pulse_pin"`
}

// DefaultRecordCommand captures 16 kHz mono WAV through PulseAudio.
var DefaultRecordCommand = []string{
	"parecord",
	"--rate=16000",
	"--channels=1",
	"--format=s16le",
	"--device={device}",
	"--file-format=wav",
	"{file}",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("active_config", "")

	v.SetDefault("input.pin", "GPIO17")
	v.SetDefault("input.pull", "up")
	v.SetDefault("input.poll_interval", 20*time.Millisecond)

	v.SetDefault("controller.trigger_edge", "rising")
	v.SetDefault("controller.settle_delay", 500*time.Millisecond)
	v.SetDefault("controller.announce", true)
	v.SetDefault("controller.record", true)
	v.SetDefault("controller.record_unconditional", false)

	v.SetDefault("announcement.message_file", "message.wav")
	v.SetDefault("announcement.events_dir", "")
	v.SetDefault("announcement.startup_sound", "")

	v.SetDefault("playback.strategies", []string{})
	v.SetDefault("playback.stop_timeout", time.Second)
	v.SetDefault("playback.omx_output", "local")
	v.SetDefault("playback.cache_dir", filepath.Join(os.TempDir(), "hookline"))

	v.SetDefault("recording.directory", "recordings")
	v.SetDefault("recording.prefix", "capture")
	v.SetDefault("recording.extension", "wav")
	v.SetDefault("recording.command", DefaultRecordCommand)
	v.SetDefault("recording.device", "")
	v.SetDefault("recording.min_duration", time.Second)
	v.SetDefault("recording.stop_timeout", 2*time.Second)

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.schedule", "@every 1m")
	v.SetDefault("sync.command", []string{"rclone", "sync", "{dir}", "gdrive:ans_machine_recordings"})

	v.SetDefault("dial.enable_pin", "GPIO11")
	v.SetDefault("dial.pulse_pin", "GPIO10")
}

// DefaultPath is where the configuration is looked up when --config is not
// given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hookline.yaml"
	}
	return filepath.Join(home, ".config", "hookline.yaml")
}

// Load reads the configuration. An empty configFile selects DefaultPath,
// which may be absent; an explicit file must exist. A non-empty profile
// overrides active_config.
func Load(configFile, profile string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultPath()
	}
	configFile = expandPath(configFile)

	read := true
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		read = false
	}

	if profile == "" {
		profile = v.GetString("active_config")
	}
	if profile != "" {
		if err := applyProfile(v, profile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ActiveConfig = profile
	if read {
		cfg.File = configFile
	}

	if out := os.Getenv("PI_AUDIO_OUTPUT"); out != "" {
		cfg.Playback.OMXOutput = out
	}

	cfg.Announcement.MessageFile = expandPath(cfg.Announcement.MessageFile)
	cfg.Announcement.EventsDir = expandPath(cfg.Announcement.EventsDir)
	cfg.Announcement.StartupSound = expandPath(cfg.Announcement.StartupSound)
	cfg.Playback.CacheDir = expandPath(cfg.Playback.CacheDir)
	cfg.Recording.Directory = expandPath(cfg.Recording.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyProfile merges configs.<name> over the file settings.
func applyProfile(v *viper.Viper, name string) error {
	key := "configs." + name
	if !v.IsSet(key) {
		return fmt.Errorf("configuration profile '%s' not found", name)
	}
	if err := v.MergeConfigMap(v.GetStringMap(key)); err != nil {
		return fmt.Errorf("error applying configuration profile '%s': %w", name, err)
	}
	return nil
}

// Validate checks enum values and durations.
func (c *Config) Validate() error {
	if c.Input.Pin == "" {
		return fmt.Errorf("input.pin is required")
	}
	switch strings.ToLower(c.Input.Pull) {
	case "up", "down", "none", "":
	default:
		return fmt.Errorf("input.pull must be 'up', 'down' or 'none', got: %s", c.Input.Pull)
	}
	if c.Input.PollInterval <= 0 {
		return fmt.Errorf("input.poll_interval must be positive, got: %s", c.Input.PollInterval)
	}

	switch strings.ToLower(c.Controller.TriggerEdge) {
	case "rising", "falling":
	default:
		return fmt.Errorf("controller.trigger_edge must be 'rising' or 'falling', got: %s", c.Controller.TriggerEdge)
	}
	if c.Controller.SettleDelay < 0 {
		return fmt.Errorf("controller.settle_delay cannot be negative, got: %s", c.Controller.SettleDelay)
	}

	if c.Announcement.MessageFile == "" && c.Announcement.EventsDir == "" {
		return fmt.Errorf("announcement.message_file is required when announcement.events_dir is not set")
	}

	if c.Playback.StopTimeout < 0 {
		return fmt.Errorf("playback.stop_timeout cannot be negative, got: %s", c.Playback.StopTimeout)
	}
	switch c.Playback.OMXOutput {
	case "local", "hdmi", "both", "alsa":
	default:
		return fmt.Errorf("playback.omx_output must be 'local', 'hdmi', 'both' or 'alsa', got: %s", c.Playback.OMXOutput)
	}

	if len(c.Recording.Command) == 0 {
		return fmt.Errorf("recording.command cannot be empty")
	}
	if c.Recording.Directory == "" {
		return fmt.Errorf("recording.directory is required")
	}
	if c.Recording.MinDuration < 0 {
		return fmt.Errorf("recording.min_duration cannot be negative, got: %s", c.Recording.MinDuration)
	}
	if c.Recording.StopTimeout < 0 {
		return fmt.Errorf("recording.stop_timeout cannot be negative, got: %s", c.Recording.StopTimeout)
	}

	if c.Sync.Enabled && len(c.Sync.Command) == 0 {
		return fmt.Errorf("sync.command cannot be empty when sync is enabled")
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
