// Package nmealog provides a periodic serial NMEA telemetry logger.
//
// A GPS receiver on a serial line emits sentences continuously; this
// package samples them every N seconds by waiting for the receive
// buffer to fill, draining a burst of lines, discarding any whose
// checksum fails to verify, and appending the rest to a log file
// whose name rolls over at local-day boundaries.
//
// Example usage:
//
//	cfg := nmealog.DefaultConfig()
//	cfg.Device = "/dev/ttyUSB0"
//	cfg.LogPath = "/var/log/gps/gps.log"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := nmealog.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package nmealog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/telemlab/nmealog/internal/agent"
)

// Config holds the configuration for the acquisition loop.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = agent.Config

// Status is the per-run snapshot written to status.json after each
// drain cycle.
type Status = agent.Status

// Run starts the acquisition loop with the given configuration. It
// blocks until the context is cancelled or an unrecoverable error
// occurs; cancellation returns ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	return agent.Run(ctx, cfg)
}

// DefaultConfig returns a Config with sensible default values. At
// minimum, set Device before calling Run; leave LogPath empty to
// write records to stdout.
func DefaultConfig() Config {
	return agent.DefaultConfig()
}

// Logger returns the package-level zerolog logger used by the
// acquisition loop.
func Logger() zerolog.Logger {
	return agent.Logger()
}
