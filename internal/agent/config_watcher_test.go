package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigWatcherAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "period = \"10s\"\nbyte_threshold = 500\n")

	cfg := DefaultConfig()
	settings := newSettings(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewConfigWatcher(path, settings)
	go w.Run(ctx)

	// Give the watcher time to establish the watch before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "period = \"3s\"\nbyte_threshold = 250\nverbose = true\n")

	deadline := time.Now().Add(3 * time.Second)
	for settings.Period() != 3*time.Second {
		if time.Now().After(deadline) {
			t.Fatalf("period = %v, want 3s after reload", settings.Period())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := settings.ByteThreshold(); got != 250 {
		t.Errorf("byte threshold = %d, want 250", got)
	}
	if !settings.Verbose() {
		t.Error("verbose = false, want true after reload")
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "period = \"10s\"\n")

	cfg := DefaultConfig()
	settings := newSettings(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewConfigWatcher(path, settings).Run(ctx)

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, filepath.Join(dir, "other.toml"), "period = \"1s\"\n")

	time.Sleep(300 * time.Millisecond)
	if got := settings.Period(); got != 10*time.Second {
		t.Errorf("period = %v, want 10s (other files must not trigger reload)", got)
	}
}

func TestSettingsUpdate(t *testing.T) {
	cfg := DefaultConfig()
	s := newSettings(cfg)

	verbose := true
	if !s.update(3*time.Second, 250, &verbose) {
		t.Error("update with new values = false, want true")
	}
	if s.Period() != 3*time.Second || s.ByteThreshold() != 250 || !s.Verbose() {
		t.Errorf("settings = %v/%d/%v, want 3s/250/true",
			s.Period(), s.ByteThreshold(), s.Verbose())
	}

	// Same values again: no change.
	if s.update(3*time.Second, 250, &verbose) {
		t.Error("update with identical values = true, want false")
	}

	// Zero values leave settings alone.
	if s.update(0, 0, nil) {
		t.Error("update with zero values = true, want false")
	}
	if s.Period() != 3*time.Second {
		t.Errorf("period = %v, want unchanged 3s", s.Period())
	}
}
