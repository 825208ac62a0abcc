package agent

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/telemlab/nmealog/internal/nmea"
)

func TestLineReaderDrainFiltersCorruptLines(t *testing.T) {
	good1 := nmea.Sentence("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") + "\r\n"
	good2 := nmea.Sentence("GPRMC,123519,A,4807.038,N,01131.000,E,000.5,054.7,191194,,") + "\r\n"
	good3 := nmea.Sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1") + "\r\n"
	// Corrupt the second line's checksum byte.
	corrupt := good2[:len(good2)-3] + "0\r\n"

	conn := &fakeConn{}
	conn.feed(good1, corrupt, good3)

	r := lineReader{conn: conn, lines: 4, timeout: 10 * time.Millisecond}
	res := r.drain(context.Background(), false)

	want := []string{good1, good3}
	if !reflect.DeepEqual(res.record, want) {
		t.Errorf("record = %q, want %q", res.record, want)
	}
	// The corrupt line and the fourth (timed out) read both count.
	if res.rejected != 2 {
		t.Errorf("rejected = %d, want 2", res.rejected)
	}
}

func TestLineReaderDrainEmptyOnSilence(t *testing.T) {
	conn := &fakeConn{}
	r := lineReader{conn: conn, lines: 3, timeout: 5 * time.Millisecond}
	res := r.drain(context.Background(), false)
	if len(res.record) != 0 {
		t.Errorf("record = %q, want empty", res.record)
	}
	if res.rejected != 3 {
		t.Errorf("rejected = %d, want 3", res.rejected)
	}
}

func TestLineReaderDrainStopsWhenClosed(t *testing.T) {
	conn := &fakeConn{}
	conn.Close()
	r := lineReader{conn: conn, lines: 4, timeout: time.Second}
	start := time.Now()
	res := r.drain(context.Background(), false)
	if len(res.record) != 0 {
		t.Errorf("record = %q, want empty", res.record)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("drain on closed conn took %v, want immediate return", elapsed)
	}
}

func TestLineReaderDrainCancelKeepsPartialRecord(t *testing.T) {
	good := nmea.Sentence("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") + "\r\n"
	conn := &fakeConn{}
	conn.feed(good)

	// One line is available; the remaining reads would each block for
	// the full timeout. Cancel while the second read is starved.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	r := lineReader{conn: conn, lines: 4, timeout: time.Second}
	start := time.Now()
	res := r.drain(ctx, false)

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("drain returned after %v, want prompt return on cancel", elapsed)
	}
	if want := []string{good}; !reflect.DeepEqual(res.record, want) {
		t.Errorf("record = %q, want %q", res.record, want)
	}
	if res.rejected != 0 {
		t.Errorf("rejected = %d, want 0 (cancellation is not a reject)", res.rejected)
	}
}

func TestLineReaderDoesNotFlush(t *testing.T) {
	conn := &fakeConn{}
	conn.feed(nmea.Sentence("GPGGA,1") + "\n")
	r := lineReader{conn: conn, lines: 1, timeout: 10 * time.Millisecond}
	r.drain(context.Background(), false)
	if got := conn.flushCount(); got != 0 {
		t.Errorf("flush count = %d, want 0 (flushing is the loop's job)", got)
	}
}
