package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvVarPrettyLogs switches log output to human-readable console format.
const EnvVarPrettyLogs = "GATEWAY_PRETTY_LOGS"

// New creates a new zerolog.Logger scoped to a component
func New(component string) zerolog.Logger {
	l := log.With().Str("component", component).Logger()
	if os.Getenv(EnvVarPrettyLogs) == "true" {
		return l.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return l
}

// SetLogLevel sets the global logging level
func SetLogLevel(verbosity string) error {
	switch strings.ToLower(verbosity) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)

	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)

	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)

	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)

	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)

	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)

	default:
		allowedLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
		return fmt.Errorf("invalid log level '%s' specified, must be one of %v", verbosity, allowedLevels)
	}
	return nil
}
