// Package config loads the settings shared by the shizu demo programs.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// SHIZU_* environment variables. Command-line flags are applied last by the
// programs themselves.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/idlib/pipe"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvPipeName     = "SHIZU_PIPE_NAME"
	EnvCapacity     = "SHIZU_PIPE_CAPACITY"
	EnvPollInterval = "SHIZU_POLL_INTERVAL"
	EnvLogLevel     = "SHIZU_LOG_LEVEL"
	EnvLogJSON      = "SHIZU_LOG_JSON"
	EnvLogNoColor   = "SHIZU_LOG_NOCOLOR"
)

// Config is the full demo configuration.
type Config struct {
	Pipe   PipeConfig
	Server ServerConfig
	Log    LogConfig
}

type PipeConfig struct {
	Name           string
	Capacity       int
	ChunkSize      int
	MaxMessageSize int
}

type ServerConfig struct {
	PollInterval time.Duration
}

type LogConfig struct {
	Level   string
	JSON    bool
	NoColor bool
}

// Default returns the configuration the demo programs use out of the box.
func Default() Config {
	return Config{
		Pipe: PipeConfig{
			Name:      "shizu_server_pipe",
			Capacity:  5 * 16,
			ChunkSize: pipe.DefaultChunkSize,
		},
		Server: ServerConfig{
			PollInterval: pipe.DefaultPollInterval,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

type fileConfig struct {
	Pipe struct {
		Name           string `toml:"name"`
		Capacity       int    `toml:"capacity"`
		ChunkSize      int    `toml:"chunk_size"`
		MaxMessageSize int    `toml:"max_message_size"`
	} `toml:"pipe"`
	Server struct {
		PollInterval string `toml:"poll_interval"`
	} `toml:"server"`
	Log struct {
		Level   string `toml:"level"`
		JSON    bool   `toml:"json"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
}

// Load returns the defaults overlaid with the TOML file at path.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("pipe", "name") {
		cfg.Pipe.Name = strings.TrimSpace(raw.Pipe.Name)
	}
	if meta.IsDefined("pipe", "capacity") {
		cfg.Pipe.Capacity = raw.Pipe.Capacity
	}
	if meta.IsDefined("pipe", "chunk_size") {
		cfg.Pipe.ChunkSize = raw.Pipe.ChunkSize
	}
	if meta.IsDefined("pipe", "max_message_size") {
		cfg.Pipe.MaxMessageSize = raw.Pipe.MaxMessageSize
	}
	if meta.IsDefined("server", "poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Server.PollInterval))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse poll_interval")
		}
		cfg.Server.PollInterval = d
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with the SHIZU_* variables returned by getenv.
// Malformed numeric, boolean or duration values are reported as errors.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvPipeName)); v != "" {
		cfg.Pipe.Name = v
	}
	if v := strings.TrimSpace(getenv(EnvCapacity)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvCapacity)
		}
		cfg.Pipe.Capacity = n
	}
	if v := strings.TrimSpace(getenv(EnvPollInterval)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvPollInterval)
		}
		cfg.Server.PollInterval = d
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	for name, dst := range map[string]*bool{EnvLogJSON: &cfg.Log.JSON, EnvLogNoColor: &cfg.Log.NoColor} {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s", name)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks the values the pipe would otherwise reject at open time.
func (c Config) Validate() error {
	if err := pipe.ValidateName(c.Pipe.Name); err != nil {
		return errors.WithMessage(err, "pipe.name")
	}
	if c.Pipe.Capacity <= 0 {
		return errors.Wrapf(pipe.ErrInvalidArgument, "pipe.capacity must be positive, got %d", c.Pipe.Capacity)
	}
	if c.Pipe.ChunkSize <= 0 {
		return errors.Wrapf(pipe.ErrInvalidArgument, "pipe.chunk_size must be positive, got %d", c.Pipe.ChunkSize)
	}
	if c.Pipe.MaxMessageSize < 0 {
		return errors.Wrapf(pipe.ErrInvalidArgument, "pipe.max_message_size must not be negative, got %d", c.Pipe.MaxMessageSize)
	}
	if c.Server.PollInterval <= 0 {
		return errors.Wrapf(pipe.ErrInvalidArgument, "server.poll_interval must be positive, got %s", c.Server.PollInterval)
	}
	return nil
}

// PipeOptions returns the pipe options described by c.
func (c Config) PipeOptions(logger pipe.Logger) []pipe.Option {
	return []pipe.Option{
		pipe.ChunkSizeOption(c.Pipe.ChunkSize),
		pipe.MaxMessageSizeOption(c.Pipe.MaxMessageSize),
		pipe.PollIntervalOption(c.Server.PollInterval),
		pipe.LoggerOption(logger),
	}
}
