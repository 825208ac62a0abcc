package agent

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make
// TOML friendly.
type FileConfig struct {
	Log             string `toml:"log"`
	Port            string `toml:"port"`
	Baud            int    `toml:"baud"`
	Period          string `toml:"period"`
	Lines           int    `toml:"lines"`
	ByteThreshold   int    `toml:"byte_threshold"`
	WaitGranularity string `toml:"wait_granularity"`
	ReadTimeout     string `toml:"read_timeout"`
	StateDir        string `toml:"state_dir"`
	Verbose         *bool  `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// ~/.nmealog/config.toml, or "" if the home directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".nmealog", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config
// struct. It respects flags that have been explicitly set (changed
// map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log", fc.Log, &cfg.LogPath)
	s.setString("port", fc.Port, &cfg.Device)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("lines", fc.Lines, &cfg.Lines)
	s.setInt("byte-threshold", fc.ByteThreshold, &cfg.ByteThreshold)

	if err := s.setDuration("period", fc.Period, &cfg.Period); err != nil {
		return err
	}
	if err := s.setDuration("wait-granularity", fc.WaitGranularity, &cfg.WaitGranularity); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)
	return nil
}
