package serialport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/telemlab/nmealog/internal/nmea"
)

// simDevices are port names that select the simulator instead of real
// hardware, matching the convention of pointing the logger at
// /dev/null for a dry run.
func IsSimDevice(dev string) bool {
	return dev == "/dev/null" || dev == "sim"
}

// Sim is an in-memory Conn that behaves like a GPS receiver: it emits
// checksummed NMEA sentences on a fixed tick and answers SCPI-style
// queries written to it with an echo line followed by a value line.
type Sim struct {
	rx   *lineBuffer
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	replies map[string]string
	seq     int
}

// NewSim starts a simulator emitting one GGA/RMC sentence pair every
// tick. A tick of zero disables the stream (query/response only).
func NewSim(tick time.Duration) *Sim {
	s := &Sim{
		rx:   newLineBuffer(),
		done: make(chan struct{}),
		replies: map[string]string{
			"*IDN?":             "NMEALOG,SIMULATOR,0,1.0",
			"GPS:JAM?":          "0",
			"GPS:SAT:VIS:COUN?": "11",
			"GPS:SAT:TRA:COUN?": "8",
			"PTIME:TINT?":       "1.2E-8",
			"SYNC:HOLD:DUR?":    "0",
		},
	}
	if tick > 0 {
		go s.stream(tick)
	}
	return s
}

// SetReply overrides the canned value returned for a query.
func (s *Sim) SetReply(query, value string) {
	s.mu.Lock()
	s.replies[query] = value
	s.mu.Unlock()
}

func (s *Sim) stream(tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-t.C:
			s.emit(now)
		}
	}
}

// emit feeds one position fix as a GGA/RMC pair. The position creeps
// north so successive records differ.
func (s *Sim) emit(now time.Time) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	utc := now.UTC()
	hms := utc.Format("150405")
	lat := fmt.Sprintf("4807.%03d", seq%1000)
	gga := fmt.Sprintf("GPGGA,%s,%s,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,", hms, lat)
	rmc := fmt.Sprintf("GPRMC,%s,A,%s,N,01131.000,E,000.5,054.7,%s,,", hms, lat, utc.Format("020106"))
	s.rx.feed([]byte(nmea.Sentence(gga) + "\r\n"))
	s.rx.feed([]byte(nmea.Sentence(rmc) + "\r\n"))
}

func (s *Sim) BytesAvailable() int { return s.rx.available() }

func (s *Sim) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	return s.rx.readLine(ctx, timeout)
}

// Write treats each CRLF-terminated line as a query: the line is
// echoed back (receivers echo commands) and the canned value follows.
func (s *Sim) Write(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, ErrClosed
	default:
	}
	query := strings.TrimRight(string(p), "\r\n")
	s.mu.Lock()
	value, ok := s.replies[query]
	s.mu.Unlock()
	if !ok {
		value = "0"
	}
	s.rx.feed([]byte(query + "\r\n"))
	s.rx.feed([]byte(value + "\r\n"))
	return len(p), nil
}

func (s *Sim) FlushInput() error {
	s.rx.flush()
	return nil
}

func (s *Sim) FlushOutput() error { return nil }

func (s *Sim) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.rx.close()
	})
	return nil
}
