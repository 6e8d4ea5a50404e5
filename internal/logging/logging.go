// Package logging sets up the process-wide zerolog logger used across
// SocketAPI's dispatcher components.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the package-level logger. Initialize configures it; until then it
// falls back to zerolog's own default writer so early registration errors
// still print somewhere.
var Log zerolog.Logger = log.Logger

// Initialize configures the global logger's level and output format.
// pretty selects a human-readable console writer for local development;
// the default is newline-delimited JSON suitable for log aggregation.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().Str("service", "socketapi").Logger()
	Log.Info().Str("level", logLevel.String()).Bool("pretty", pretty).Msg("logger initialized")
}

// Component returns a child logger tagged with the given component name,
// following a per-subsystem logger convention.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// Session returns the child logger for the per-connection frame loop.
func Session() zerolog.Logger { return Component("session") }

// Subscription returns the child logger for the subscription/broadcast engine.
func Subscription() zerolog.Logger { return Component("subscription") }

// Ingress returns the child logger for the cross-process broadcast ingress.
func Ingress() zerolog.Logger { return Component("ingress") }

// Registry returns the child logger for endpoint registration.
func Registry() zerolog.Logger { return Component("registry") }
