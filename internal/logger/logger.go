package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the log output.
type Config struct {
	Env   string // development: console output, anything else: JSON
	Level string // trace, debug, info, warn, error

	// Out defaults to os.Stderr so command output on stdout stays clean.
	Out io.Writer
}

// New returns a structured logger and installs it as the zerolog global
// logger.
func New(cfg Config) zerolog.Logger {
	w := cfg.Out
	if w == nil {
		w = os.Stderr
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	zl := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	log.Logger = zl

	return zl
}

// ParseLevel maps a level name to its zerolog level. Empty or unknown
// names mean info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
