package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendAuto      = "auto"
	BackendCoreAudio = "coreaudio"
	BackendPortAudio = "portaudio"
	BackendFake      = "fake"

	ModeStream = "stream"
	ModeTray   = "tray"

	MinPollInterval = 100 * time.Millisecond
)

type Config struct {
	LogLevel     string        `mapstructure:"log_level"`
	Backend      string        `mapstructure:"backend"`
	Mode         string        `mapstructure:"mode"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	QueueSize    int           `mapstructure:"queue_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("backend", BackendAuto)
	v.SetDefault("mode", ModeStream)
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("queue_size", 32)
}

// Flags registers the command-line overrides on flags.
func Flags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default "+Path()+")")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("backend", BackendAuto, "device backend: auto, coreaudio, portaudio or fake")
	flags.String("mode", ModeStream, "stream JSON snapshots to stdout, or run the tray menu")
	flags.Duration("poll-interval", time.Second, "device poll interval for the portaudio backend")
	flags.Int("queue-size", 32, "delivery queue capacity")
}

var flagKeys = map[string]string{
	"log-level":     "log_level",
	"backend":       "backend",
	"mode":          "mode",
	"poll-interval": "poll_interval",
	"queue-size":    "queue_size",
}

// Load merges defaults, the config file, MICWATCH_* environment variables
// and any flags set on flags, in increasing order of precedence. flags may
// be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MICWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := Path()
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if p, err := flags.GetString("config"); err == nil && p != "" {
			path = p
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendCoreAudio, BackendPortAudio, BackendFake:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Mode {
	case ModeStream, ModeTray:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("poll interval %v is below %v", c.PollInterval, MinPollInterval)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// Save writes c as JSON to the default config path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("log_level", c.LogLevel)
	v.Set("backend", c.Backend)
	v.Set("mode", c.Mode)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("queue_size", c.QueueSize)
	v.SetConfigType("json")
	return v.WriteConfigAs(path)
}

// Path returns the platform-specific config file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "micwatch", "config.json")
}
