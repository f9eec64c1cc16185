package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// DebugEnv forces debug logging when set to any non-empty value.
const DebugEnv = "FRETLOG_DEBUG"

// Options selects the logger's level, encoding and destination.
type Options struct {
	Level  string
	Format string
	Out    io.Writer
}

// DebugEnabled returns true if debug mode is enabled via FRETLOG_DEBUG
func DebugEnabled() bool {
	return os.Getenv(DebugEnv) != ""
}

// ParseLevel maps a configured level name onto zerolog, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds the process logger. Output defaults to stderr so command
// output on stdout stays clean.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)
	if DebugEnabled() {
		level = zerolog.DebugLevel
	}

	if opts.Format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
