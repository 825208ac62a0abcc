// Package logfile appends telemetry records to day-stamped files.
//
// The target path for a record is {stem}-{YYYY-MM-DD}{ext}, derived
// from the configured log path and the loop's current day. Files are
// opened in append mode per write and never truncated or renamed, so
// day rollover simply targets a new path and leaves prior files alone.
package logfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dayFormat = "2006-01-02"

// Writer appends records for one run. A zero stem writes records to
// Echo instead of a file; Verbose echoes them there in addition.
type Writer struct {
	stem    string
	ext     string
	Verbose bool

	// Echo receives records when no file is configured, and copies
	// when Verbose is set. Defaults to os.Stdout.
	Echo io.Writer
}

// New splits path into stem and extension and expands a leading "~".
// An empty path configures stdout-only output.
func New(path string) (*Writer, error) {
	w := &Writer{Echo: os.Stdout}
	if path == "" {
		return w, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	w.ext = filepath.Ext(path)
	w.stem = strings.TrimSuffix(path, w.ext)
	return w, nil
}

// FileConfigured reports whether records go to a file.
func (w *Writer) FileConfigured() bool { return w.stem != "" }

// Path returns the target file for day, or "" when writing to Echo.
func (w *Writer) Path(day time.Time) string {
	if w.stem == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s%s", w.stem, day.Format(dayFormat), w.ext)
}

// Append writes the concatenation of rec's lines to the file for day.
// An empty record is a no-op: nothing is written and no file is
// created. A write failure is returned to the caller; losing records
// silently would defeat the logger, so callers treat it as fatal.
func (w *Writer) Append(day time.Time, rec []string) error {
	if len(rec) == 0 {
		return nil
	}
	text := strings.Join(rec, "")

	if w.stem == "" {
		_, err := io.WriteString(w.Echo, text)
		return err
	}
	if w.Verbose {
		// Best-effort copy; only the file write decides success.
		_, _ = io.WriteString(w.Echo, text)
	}

	path := w.Path(day)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := io.WriteString(f, text); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
