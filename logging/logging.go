// Package logging configures the zerolog logger shared by the arbor
// packages.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. A verbosity of 0 logs warnings and
// errors, 1 adds info, 2 adds debug with caller information, and anything
// higher logs everything.
func Setup(verbosity int) {
	SetupWriter(verbosity, zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

// SetupWriter is like Setup but sends the log to w.
func SetupWriter(verbosity int, w io.Writer) {
	zerolog.SetGlobalLevel(Level(verbosity))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// Level maps a verbosity count to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

// Get returns a logger tagged with the given component name.
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
