package agent

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// logger carries diagnostics for the acquisition loop, its line
// reader, and the config watcher. Record data never flows through it;
// sentences go to the day files only.
var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}
