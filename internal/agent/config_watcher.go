package agent

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher monitors the config file via fsnotify and applies the
// live-tunable settings to a running loop. The watch is on the parent
// directory because editors replace files by rename, which drops a
// watch set on the file itself.
type ConfigWatcher struct {
	path     string
	settings *Settings

	mu       sync.Mutex
	debounce *time.Timer
}

func NewConfigWatcher(path string, settings *Settings) *ConfigWatcher {
	return &ConfigWatcher{path: path, settings: settings}
}

// Run blocks until ctx is cancelled, reloading the config file after
// each write or create event.
func (w *ConfigWatcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn().Err(err).Msg("config watcher: create failed, live reload disabled")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("config watcher: watch failed, live reload disabled")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher: error")
		}
	}
}

// debounceReload coalesces the event bursts editors produce into one
// reload.
func (w *ConfigWatcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

func (w *ConfigWatcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("config watcher: reload failed")
		return
	}

	var period time.Duration
	if fc.Period != "" {
		period, err = time.ParseDuration(fc.Period)
		if err != nil {
			logger.Warn().Err(err).Msg("config watcher: bad period, ignoring")
			period = 0
		}
	}

	if w.settings.update(period, fc.ByteThreshold, fc.Verbose) {
		logger.Info().
			Dur("period", w.settings.Period()).
			Int("byte_threshold", w.settings.ByteThreshold()).
			Bool("verbose", w.settings.Verbose()).
			Msg("config watcher: settings updated")
	}
}
