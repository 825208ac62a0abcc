// Package agent runs the acquisition loop: it gates on receive-buffer
// fill, drains bursts of checksum-validated lines from the serial
// transport, and appends them to day-stamped log files on a fixed
// cadence until cancelled.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/telemlab/nmealog/internal/logfile"
	"github.com/telemlab/nmealog/internal/serialport"
)

// loopState tracks where the acquisition loop is in its cycle.
type loopState int

const (
	stateIdle loopState = iota
	stateDraining
	stateWaiting
	stateReading
	stateWriting
	stateStopped
)

func (s loopState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateDraining:
		return "Draining"
	case stateWaiting:
		return "Waiting"
	case stateReading:
		return "Reading"
	case stateWriting:
		return "Writing"
	case stateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Run opens the transport and drives the acquisition loop until ctx
// is cancelled or an unrecoverable error occurs. It returns ctx.Err()
// on cancellation, a wrapped error for transport-open and write
// failures.
func Run(ctx context.Context, cfg Config) error {
	conn, err := openConn(cfg)
	if err != nil {
		return err
	}

	out, err := logfile.New(cfg.LogPath)
	if err != nil {
		conn.Close()
		return err
	}
	out.Verbose = cfg.Verbose

	settings := newSettings(cfg)
	if cfg.ConfigFile != "" {
		go NewConfigWatcher(cfg.ConfigFile, settings).Run(ctx)
	}

	logger.Info().
		Str("port", cfg.Device).
		Int("baud", cfg.Baud).
		Dur("period", cfg.Period).
		Int("lines", cfg.Lines).
		Int("byte_threshold", cfg.ByteThreshold).
		Msg("acquisition starting")

	return newLoop(cfg, settings, conn, out).run(ctx)
}

func openConn(cfg Config) (serialport.Conn, error) {
	if serialport.IsSimDevice(cfg.Device) {
		logger.Info().Msg("using simulated receiver")
		return serialport.NewSim(500 * time.Millisecond), nil
	}
	return serialport.Open(cfg.Device, cfg.Baud)
}

// loop owns the transport and all mutable cycle state, including the
// day the current record is attributed to. Nothing here is shared
// with the control goroutine; cancellation arrives through ctx only.
type loop struct {
	cfg      Config
	settings *Settings
	conn     serialport.Conn
	out      *logfile.Writer
	reader   lineReader
	state    loopState
	day      time.Time
	status   Status

	// now is swapped out by tests to drive day rollover.
	now func() time.Time
}

func newLoop(cfg Config, s *Settings, conn serialport.Conn, out *logfile.Writer) *loop {
	return &loop{
		cfg:      cfg,
		settings: s,
		conn:     conn,
		out:      out,
		reader:   lineReader{conn: conn, lines: cfg.Lines, timeout: cfg.ReadTimeout},
		state:    stateIdle,
		now:      time.Now,
	}
}

func (l *loop) run(ctx context.Context) error {
	defer func() {
		if err := l.conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("close transport")
		}
	}()

	// Idle -> Draining: clear out any old junk, capture the day.
	if err := l.conn.FlushInput(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	if err := l.conn.FlushOutput(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	l.day = l.now()
	l.status.Device = l.cfg.Device
	l.setState(stateDraining)

	// The cycle deadline advances by the period against the
	// monotonic clock, so read time is absorbed instead of
	// accumulating as drift.
	next := l.now().Add(l.settings.Period())

	for {
		if ctx.Err() != nil {
			return l.stopped(ctx)
		}
		verbose := l.settings.Verbose()
		l.out.Verbose = verbose

		gate := bufferGate{threshold: l.settings.ByteThreshold()}
		avail := l.conn.BytesAvailable()
		if !gate.ready(avail) {
			l.setState(stateWaiting)
			if verbose {
				logger.Debug().
					Int("bytes", avail).
					Int("threshold", gate.threshold).
					Msg("buffer below threshold")
			}
			if !sleepCtx(ctx, l.cfg.WaitGranularity) {
				return l.stopped(ctx)
			}
			continue
		}

		l.setState(stateReading)
		// A cancelled drain returns early with a partial record; it
		// is still written below, then the post-cycle sleep or the
		// top-of-loop check exits the run.
		res := l.reader.drain(ctx, verbose)

		l.setState(stateWriting)
		if err := l.out.Append(l.day, res.record); err != nil {
			// Continuing without durable storage would lose every
			// subsequent record, so a write failure stops the run.
			l.setState(stateStopped)
			return fmt.Errorf("write record: %w", err)
		}
		l.noteCycle(res)

		// Writing -> Draining: drop residual bytes so they don't
		// bias the next gate decision, then re-derive the day.
		if err := l.conn.FlushInput(); err != nil {
			return fmt.Errorf("flush input: %w", err)
		}
		l.rollDay()
		l.setState(stateDraining)

		next = next.Add(l.settings.Period())
		if wait := next.Sub(l.now()); wait > 0 {
			if !sleepCtx(ctx, wait) {
				return l.stopped(ctx)
			}
		} else {
			// Fell behind a full period; rebase rather than burst.
			next = l.now()
		}
	}
}

func (l *loop) stopped(ctx context.Context) error {
	l.setState(stateStopped)
	logger.Info().
		Uint64("cycles", l.status.Cycles).
		Uint64("lines", l.status.LinesAccepted).
		Msg("acquisition stopped")
	return ctx.Err()
}

func (l *loop) setState(s loopState) {
	if s == l.state {
		return
	}
	logger.Debug().Stringer("from", l.state).Stringer("to", s).Msg("state transition")
	l.state = s
}

// rollDay advances the loop's day once the wall-clock date has moved
// past it. Evaluated once per cycle so a record is never split across
// two days.
func (l *loop) rollDay() {
	today := l.now()
	if today.Year() != l.day.Year() || today.YearDay() != l.day.YearDay() {
		logger.Info().Str("day", today.Format("2006-01-02")).Msg("day rollover")
		l.day = today
	}
}

func (l *loop) noteCycle(res drainResult) {
	l.status.Cycles++
	l.status.LinesAccepted += uint64(len(res.record))
	l.status.LinesRejected += uint64(res.rejected)
	l.status.LastCycleAt = l.now()
	l.status.CurrentLog = l.out.Path(l.day)
	if l.cfg.StateDir != "" {
		if err := saveStatus(l.cfg.StateDir, l.status); err != nil {
			logger.Warn().Err(err).Msg("save status")
		}
	}
}
