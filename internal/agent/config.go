package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultDevice is the serial port used when none is configured.
const DefaultDevice = "/dev/ttyS0"

type Config struct {
	// LogPath is the output file whose name gains a -YYYY-MM-DD day
	// stamp before the extension. Empty writes records to stdout.
	LogPath string

	// Device is the serial port ("/dev/null" or "sim" selects the
	// built-in simulator).
	Device string
	Baud   int

	// Period is the target cadence between drain cycles.
	Period time.Duration

	// Lines is how many lines one drain cycle reads.
	Lines int

	// ByteThreshold is the receive-buffer fill level at which a
	// drain is worthwhile; below it the loop keeps waiting.
	ByteThreshold int

	// WaitGranularity bounds every interruptible pause, and with it
	// the shutdown latency.
	WaitGranularity time.Duration

	// ReadTimeout bounds a single blocking line read.
	ReadTimeout time.Duration

	// StateDir receives status.json. Derived from LogPath when empty;
	// stays disabled when logging to stdout.
	StateDir string

	// ConfigFile, when set, is watched while the loop runs and its
	// live-tunable settings (period, byte_threshold, verbose) are
	// applied on change.
	ConfigFile string

	Verbose bool
}

// DefaultConfig returns a Config with default values. The numeric
// defaults suit a 19200 baud receiver emitting a sentence burst per
// second: 500 buffered bytes is enough traffic that a drain always
// finds complete lines.
func DefaultConfig() Config {
	return Config{
		Device:          DefaultDevice,
		Baud:            19200,
		Period:          10 * time.Second,
		Lines:           4,
		ByteThreshold:   500,
		WaitGranularity: 500 * time.Millisecond,
		ReadTimeout:     time.Second,
	}
}

// Validate checks the configuration for errors and sets derived
// defaults.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive")
	}
	if c.Lines <= 0 {
		return fmt.Errorf("lines per cycle must be positive")
	}
	if c.ByteThreshold < 0 {
		return fmt.Errorf("byte threshold must be non-negative")
	}
	if c.WaitGranularity <= 0 {
		c.WaitGranularity = 500 * time.Millisecond
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = time.Second
	}
	if c.StateDir == "" && c.LogPath != "" {
		c.StateDir = filepath.Dir(c.LogPath)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and
// flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not
// changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if
// valid. Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
