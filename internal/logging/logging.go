// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

// Format names accepted by Setup.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatECS     = "ecs"
)

// Options selects the level, the output format and the app tag of every event.
type Options struct {
	App    string
	Level  string
	Format string
	// Out defaults to stdout.
	Out io.Writer
}

// New builds a logger from opts without touching the global one.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var base zerolog.Logger
	switch strings.ToLower(opts.Format) {
	case FormatConsole:
		base = zerolog.New(zerolog.ConsoleWriter{Out: out})
	case FormatECS:
		base = ecszerolog.New(out)
	default:
		base = zerolog.New(out)
	}

	return base.Level(ParseLevel(opts.Level)).
		With().Timestamp().Str("app", opts.App).
		Logger()
}

// Setup builds a logger from opts and installs it as log.Logger.
func Setup(opts Options) zerolog.Logger {
	l := New(opts)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// ParseLevel maps a level name to zerolog, falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
