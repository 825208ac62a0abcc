// Package scpi implements the synchronous query/response variant of
// the logger for SCPI-speaking GPS disciplined oscillators (Jackson
// Labs Firefly-II, ULN-2550). Each poll issues a fixed query set over
// the serial line, reads one labeled reply per query, and appends the
// joined values as a single record line.
package scpi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/telemlab/nmealog/internal/logfile"
	"github.com/telemlab/nmealog/internal/serialport"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}

// DefaultQueries is the receiver health set polled each period:
// jamming level, visible and tracked satellite counts, time interval
// offset, and holdover duration.
var DefaultQueries = []string{
	"GPS:JAM?",
	"GPS:SAT:VIS:COUN?",
	"GPS:SAT:TRA:COUN?",
	"PTIME:TINT?",
	"SYNC:HOLD:DUR?",
}

// Client issues one query at a time over an exclusive serial
// connection. The receiver echoes the command before the value, so
// every exchange is exactly two line reads.
type Client struct {
	conn    serialport.Conn
	timeout time.Duration
}

func NewClient(conn serialport.Conn, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Client{conn: conn, timeout: timeout}
}

// Query sends cmd and returns the reply value with the line
// terminator trimmed. Cancelling ctx aborts a stalled read.
func (c *Client) Query(ctx context.Context, cmd string) (string, error) {
	if _, err := c.conn.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("write %s: %w", cmd, err)
	}
	// First line back is the command echo.
	if _, err := c.conn.ReadLine(ctx, c.timeout); err != nil {
		return "", fmt.Errorf("read echo for %s: %w", cmd, err)
	}
	value, err := c.conn.ReadLine(ctx, c.timeout)
	if err != nil {
		return "", fmt.Errorf("read reply for %s: %w", cmd, err)
	}
	return strings.TrimRight(value, "\r\n"), nil
}

// Identify asks the receiver for its identification string.
func (c *Client) Identify(ctx context.Context) (string, error) {
	return c.Query(ctx, "*IDN?")
}

// LogName stamps a bare log stem with the .txt extension the record
// files carry. Only the final path element decides whether the stem
// already has one.
func LogName(path string) string {
	if path != "" && filepath.Ext(path) == "" {
		path += ".txt"
	}
	return path
}

// Poller runs the periodic query cycle. One record line per period:
// a UTC timestamp followed by the reply values, space-joined.
type Poller struct {
	Client  *Client
	Out     *logfile.Writer
	Queries []string
	Period  time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

func NewPoller(client *Client, out *logfile.Writer, period time.Duration) *Poller {
	return &Poller{
		Client:  client,
		Out:     out,
		Queries: DefaultQueries,
		Period:  period,
		now:     time.Now,
	}
}

// record runs one query cycle. A failed query leaves its field empty
// and the cycle carries on; a partial record beats a lost one.
// Cancellation stops the cycle without logging the remaining queries
// as failures.
func (p *Poller) record(ctx context.Context, now time.Time) string {
	fields := make([]string, 0, len(p.Queries)+1)
	fields = append(fields, now.UTC().Format(time.RFC3339))
	for _, q := range p.Queries {
		value, err := p.Client.Query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn().Err(err).Str("query", q).Msg("query failed")
			value = ""
		}
		fields = append(fields, value)
	}
	return strings.Join(fields, " ") + "\n"
}

// Run polls until ctx is cancelled. Write failures stop the run, same
// as the continuous logger.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		now := p.now()
		line := p.record(ctx, now)
		if ctx.Err() != nil {
			// Cancelled mid-cycle; drop the truncated record.
			return ctx.Err()
		}
		if err := p.Out.Append(now, []string{line}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		t := time.NewTimer(p.Period)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
