package agent

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (NMEALOG_*). It respects flags that have been explicitly set
// (changed map). Returns error if any environment variable has an
// invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log", os.Getenv("NMEALOG_LOG"), &cfg.LogPath)
	s.setString("port", os.Getenv("NMEALOG_PORT"), &cfg.Device)
	s.setString("state-dir", os.Getenv("NMEALOG_STATE_DIR"), &cfg.StateDir)

	if err := s.setIntFromString("baud", os.Getenv("NMEALOG_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("lines", os.Getenv("NMEALOG_LINES"), &cfg.Lines); err != nil {
		return err
	}
	if err := s.setIntFromString("byte-threshold", os.Getenv("NMEALOG_BYTE_THRESHOLD"), &cfg.ByteThreshold); err != nil {
		return err
	}

	if err := s.setDuration("period", os.Getenv("NMEALOG_PERIOD"), &cfg.Period); err != nil {
		return err
	}
	if err := s.setDuration("wait-granularity", os.Getenv("NMEALOG_WAIT_GRANULARITY"), &cfg.WaitGranularity); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", os.Getenv("NMEALOG_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("NMEALOG_VERBOSE"), &cfg.Verbose)
	return nil
}
