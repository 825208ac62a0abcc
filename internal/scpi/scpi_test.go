package scpi

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/telemlab/nmealog/internal/logfile"
	"github.com/telemlab/nmealog/internal/serialport"
)

func TestClientQueryAgainstSim(t *testing.T) {
	sim := serialport.NewSim(0)
	defer sim.Close()
	sim.SetReply("GPS:JAM?", "2")

	c := NewClient(sim, time.Second)
	got, err := c.Query(context.Background(), "GPS:JAM?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got != "2" {
		t.Errorf("Query(GPS:JAM?) = %q, want 2", got)
	}
}

func TestClientIdentify(t *testing.T) {
	sim := serialport.NewSim(0)
	defer sim.Close()

	c := NewClient(sim, time.Second)
	idn, err := c.Identify(context.Background())
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !strings.Contains(idn, "SIMULATOR") {
		t.Errorf("Identify = %q, want simulator identification", idn)
	}
}

func TestLogName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"fury", "fury.txt"},
		{"fury.log", "fury.log"},
		{"/home/user.name/fury", "/home/user.name/fury.txt"},
		{"/data/v1.2/records.txt", "/data/v1.2/records.txt"},
	}
	for _, tt := range tests {
		if got := LogName(tt.path); got != tt.want {
			t.Errorf("LogName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPollerRecord(t *testing.T) {
	sim := serialport.NewSim(0)
	defer sim.Close()
	sim.SetReply("GPS:JAM?", "1")
	sim.SetReply("GPS:SAT:VIS:COUN?", "10")
	sim.SetReply("GPS:SAT:TRA:COUN?", "7")
	sim.SetReply("PTIME:TINT?", "2.0E-9")
	sim.SetReply("SYNC:HOLD:DUR?", "0")

	out, err := logfile.New("")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPoller(NewClient(sim, time.Second), out, time.Second)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	line := p.record(context.Background(), now)
	want := "2024-01-01T12:00:00Z 1 10 7 2.0E-9 0\n"
	if line != want {
		t.Errorf("record = %q, want %q", line, want)
	}
}

func TestPollerRecordToleratesFailedQuery(t *testing.T) {
	sim := serialport.NewSim(0)
	sim.Close() // every query fails

	out, err := logfile.New("")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPoller(NewClient(sim, 10*time.Millisecond), out, time.Second)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	line := p.record(context.Background(), now)
	// Timestamp plus five empty fields.
	want := "2024-01-01T12:00:00Z     \n"
	if line != want {
		t.Errorf("record = %q, want %q", line, want)
	}
}

func TestPollerRunWritesAndStops(t *testing.T) {
	dir := t.TempDir()
	sim := serialport.NewSim(0)
	defer sim.Close()

	out, err := logfile.New(filepath.Join(dir, "scpi.txt"))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPoller(NewClient(sim, time.Second), out, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	path := filepath.Join(dir, "scpi-"+time.Now().Format("2006-01-02")+".txt")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if b, err := os.ReadFile(path); err == nil && bytes.Count(b, []byte("\n")) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller produced no records")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
