// Package logging builds the zerolog logger used by the shizu demo programs
// and adapts it to pipe.Logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/idlib/pipe"
	"github.com/idlib/pipe/example/internal/config"
)

// New returns a logger writing to out, tagged with app.
func New(app string, cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	w := out
	if !cfg.JSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel maps a level name to a zerolog level. It reports false for
// empty or unknown names.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Adapter lets a zerolog.Logger serve as a pipe.Logger.
// Arguments are alternating keys and values, as with log/slog.
type Adapter struct {
	L zerolog.Logger
}

var _ pipe.Logger = Adapter{}

func (a Adapter) Debug(msg string, args ...any) { a.L.Debug().Fields(args).Msg(msg) }
func (a Adapter) Info(msg string, args ...any)  { a.L.Info().Fields(args).Msg(msg) }
func (a Adapter) Warn(msg string, args ...any)  { a.L.Warn().Fields(args).Msg(msg) }
func (a Adapter) Error(msg string, args ...any) { a.L.Error().Fields(args).Msg(msg) }
