package agent

import (
	"context"
	"time"
)

// bufferGate decides whether enough bytes have accumulated in the
// receive buffer to make a drain worthwhile. Draining early yields
// partial lines that fail validation, so below the threshold the loop
// waits instead.
type bufferGate struct {
	threshold int
}

// ready reports "proceed" when avail meets the threshold.
func (g bufferGate) ready(avail int) bool {
	return avail >= g.threshold
}

// sleepCtx pauses for d or until ctx is cancelled. It returns false
// on cancellation so callers can head straight for shutdown.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
