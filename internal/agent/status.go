package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Status is the run snapshot written after each cycle so an operator
// can see the logger making progress without tailing its output.
type Status struct {
	Device        string    `json:"device"`
	CurrentLog    string    `json:"current_log,omitempty"`
	Cycles        uint64    `json:"cycles"`
	LinesAccepted uint64    `json:"lines_accepted"`
	LinesRejected uint64    `json:"lines_rejected"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
}

func statusFile(dir string) string { return filepath.Join(dir, "status.json") }

func loadStatus(dir string) (Status, error) {
	b, err := os.ReadFile(statusFile(dir))
	if err != nil {
		return Status{}, err
	}
	var st Status
	if err := json.Unmarshal(b, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// saveStatus writes atomically via rename so a crash never leaves a
// truncated snapshot.
func saveStatus(dir string, st Status) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := statusFile(dir) + ".tmp"
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, statusFile(dir))
}
