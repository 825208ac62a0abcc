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

	"github.com/telemlab/nmealog/internal/logfile"
	"github.com/telemlab/nmealog/internal/scpi"
	"github.com/telemlab/nmealog/internal/serialport"
)

const helpDescription = `
Poll a SCPI-speaking GPS disciplined oscillator (Jackson Labs
Firefly-II, ULN-2550) over a serial line and log one health record per
period: jamming level, visible/tracked satellite counts, time interval
offset and holdover duration, prefixed with a UTC timestamp.

Unlike nmealog this is a strict query/response logger: it never
buffers or validates a stream, it asks and records. Pass --port sim
(or /dev/null) to run against a built-in simulated receiver.
`

var exampleUsage = strings.TrimSpace(`
  scpilog --log ~/fury --port /dev/ttyUSB1
  scpilog --port sim --period 2s
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var (
		logPath string
		device  string
		baud    int
		period  time.Duration
		verbose bool
	)

	log := scpi.Logger()

	root := &cobra.Command{
		Use:     "scpilog",
		Short:   "Periodic SCPI health logger for GPS disciplined oscillators",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			if period <= 0 {
				return fmt.Errorf("period must be positive")
			}

			var conn serialport.Conn
			if serialport.IsSimDevice(device) {
				log.Info().Msg("using simulated receiver")
				conn = serialport.NewSim(0)
			} else {
				p, err := serialport.Open(device, baud)
				if err != nil {
					return err
				}
				conn = p
			}
			defer conn.Close()

			if err := conn.FlushInput(); err != nil {
				return fmt.Errorf("flush input: %w", err)
			}
			if err := conn.FlushOutput(); err != nil {
				return fmt.Errorf("flush output: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client := scpi.NewClient(conn, time.Second)
			idn, err := client.Identify(ctx)
			if err != nil {
				return fmt.Errorf("identify receiver: %w", err)
			}
			log.Info().Str("idn", idn).Msg("receiver identified")

			out, err := logfile.New(scpi.LogName(logPath))
			if err != nil {
				return err
			}
			out.Verbose = verbose

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() { errCh <- scpi.NewPoller(client, out, period).Run(ctx) }()

			select {
			case <-sigCh:
				log.Info().Msg("interrupt received, stopping...")
				cancel()
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}
		},
	}

	root.Flags().StringVarP(&logPath, "log", "o", "", "log file stem to write records to (stdout when omitted)")
	root.Flags().StringVarP(&device, "port", "p", "/dev/ttyS0", "serial port to listen on (sim or /dev/null for the simulator)")
	root.Flags().IntVarP(&baud, "baud", "b", 19200, "baud rate")
	root.Flags().DurationVarP(&period, "period", "T", 10*time.Second, "polling period")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a lot of stuff to help debug")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("scpilog")
		os.Exit(1)
	}
}
