// Package telemetry provides logging and metrics for the connector layer.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the root logger with the given level and format.
// Format is "console" or "json"; unknown levels fall back to info.
func NewLogger(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stderr
	if format == "console" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(parseLogLevel(level))
}

// Component returns a child logger tagged with a component name.
func Component(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// parseLogLevel converts a string log level to zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
