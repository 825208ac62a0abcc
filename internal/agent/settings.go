package agent

import (
	"sync"
	"time"
)

// Settings holds the tunables the config watcher may change while the
// loop runs. The loop reads them at cycle boundaries; everything else
// in Config is fixed for the run.
type Settings struct {
	mu            sync.Mutex
	period        time.Duration
	byteThreshold int
	verbose       bool
}

func newSettings(cfg Config) *Settings {
	return &Settings{
		period:        cfg.Period,
		byteThreshold: cfg.ByteThreshold,
		verbose:       cfg.Verbose,
	}
}

func (s *Settings) Period() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

func (s *Settings) ByteThreshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byteThreshold
}

func (s *Settings) Verbose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbose
}

// update applies the live-tunable fields from a re-read config file
// and reports whether anything changed.
func (s *Settings) update(period time.Duration, byteThreshold int, verbose *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	if period > 0 && period != s.period {
		s.period = period
		changed = true
	}
	if byteThreshold > 0 && byteThreshold != s.byteThreshold {
		s.byteThreshold = byteThreshold
		changed = true
	}
	if verbose != nil && *verbose != s.verbose {
		s.verbose = *verbose
		changed = true
	}
	return changed
}
