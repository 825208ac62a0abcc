package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/telemlab/nmealog/internal/agent"
)

const helpDescription = `
Log NMEA telemetry from a serial GPS receiver every N seconds, even
when the receiver emits data every second.

Highlights:
  - Waits for the receive buffer to fill, then drains a burst of lines.
  - Drops lines whose NMEA checksum doesn't verify; noise never
    reaches the log.
  - Rolls the log file over at local midnight ({stem}-YYYY-MM-DD{ext}).
  - Pass --port sim (or /dev/null) to run against a built-in
    simulated receiver.
`

var exampleUsage = strings.TrimSpace(`
  nmealog --log ~/gps.log --port /dev/ttyUSB0
  nmealog --port sim --period 5s --verbose
  nmealog --config ~/.nmealog/config.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := agent.DefaultConfig()
	var cfgPath string

	log := agent.Logger()

	root := &cobra.Command{
		Use:     "nmealog",
		Short:   "Periodic NMEA serial telemetry logger with day-stamped output files",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first, then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = agent.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && agent.FileExists(cfgFile) {
				fc, err := agent.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := agent.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				// Keep watching this file for live tuning.
				cfg.ConfigFile = cfgFile
			}

			if err := agent.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// The acquisition loop runs on its own goroutine; this one
			// stays free to field the interrupt at any time.
			errCh := make(chan error, 1)
			go func() { errCh <- agent.Run(ctx, cfg) }()

			heartbeat := time.NewTicker(time.Second)
			defer heartbeat.Stop()

			for {
				select {
				case <-sigCh:
					log.Info().Msg("interrupt received, stopping...")
					cancel()
					// Wait for the worker so the in-flight record is
					// written and the port released before exit.
					if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil

				case err := <-errCh:
					if err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil

				case <-heartbeat.C:
					log.Debug().Str("utc", time.Now().UTC().Format("15:04:05")).Msg("heartbeat")
				}
			}
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.nmealog/config.toml)")
	root.Flags().StringVarP(&cfg.LogPath, "log", "l", cfg.LogPath, "log file to write GPS data to (stdout when omitted)")
	root.Flags().StringVarP(&cfg.Device, "port", "p", cfg.Device, "serial port to listen on (sim or /dev/null for the simulator)")
	root.Flags().IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "baud rate")
	root.Flags().DurationVarP(&cfg.Period, "period", "T", cfg.Period, "polling period")
	root.Flags().IntVar(&cfg.Lines, "lines", cfg.Lines, "lines to read per drain cycle")
	root.Flags().IntVar(&cfg.ByteThreshold, "byte-threshold", cfg.ByteThreshold, "buffered bytes required before draining")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (defaults beside the log file)")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "print a lot of stuff to help debug")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("nmealog")
		os.Exit(1)
	}
}
