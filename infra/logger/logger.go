package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/evfleet/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. APP_LOGGER selects the
// backend (zerolog by default, logrus on request) and APP_ENV=dev switches
// to human readable output.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("APP_LOGGER"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}

func devMode() bool {
	return strings.ToLower(os.Getenv("APP_ENV")) == "dev"
}

// levelName returns APP_LOG_LEVEL lowercased, defaulting to info.
func levelName() string {
	lvl := strings.ToLower(strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")))
	if lvl == "" {
		return "info"
	}
	return lvl
}
