package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the service logger: console output at debug level in
// development, JSON at info level elsewhere.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "offersync").
		Str("env", appEnv).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger lets packages take a logger without importing zerolog themselves.
type Logger = zerolog.Logger
