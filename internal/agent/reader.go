package agent

import (
	"context"
	"errors"
	"time"

	"github.com/telemlab/nmealog/internal/nmea"
	"github.com/telemlab/nmealog/internal/serialport"
)

// lineReader performs one drain cycle: up to a fixed number of
// bounded line reads, each filtered through checksum validation.
type lineReader struct {
	conn    serialport.Conn
	lines   int
	timeout time.Duration
}

// drainResult carries the validated record plus reject accounting for
// the status file.
type drainResult struct {
	record   []string
	rejected int
}

// drain reads up to r.lines lines and keeps the ones that validate,
// in arrival order. Timeouts and checksum failures count as rejects
// and the cycle continues; a closed transport or cancellation cuts
// the cycle short. The input buffer is left alone; flushing after the
// cycle is the loop's job.
func (r *lineReader) drain(ctx context.Context, verbose bool) drainResult {
	var res drainResult
	for i := 0; i < r.lines; i++ {
		if ctx.Err() != nil {
			break
		}
		line, err := r.conn.ReadLine(ctx, r.timeout)
		if err != nil {
			if errors.Is(err, serialport.ErrClosed) || ctx.Err() != nil {
				break
			}
			// ReadTimeout: an empty candidate, discarded.
			res.rejected++
			continue
		}
		if !nmea.Valid(line) {
			res.rejected++
			if verbose {
				logger.Debug().Str("line", line).Msg("checksum reject")
			}
			continue
		}
		res.record = append(res.record, line)
	}
	return res
}
