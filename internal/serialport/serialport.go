// Package serialport provides the serial transport the acquisition
// loop reads from: a Conn interface, a real implementation backed by
// go.bug.st/serial, and a simulator for running without hardware.
package serialport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

// Sentinel errors returned by Conn implementations.
var (
	ErrClosed      = errors.New("serialport: closed")
	ErrReadTimeout = errors.New("serialport: read timeout")
)

// Conn is a line-oriented serial connection. It is owned by a single
// goroutine for the duration of a run; implementations only need to
// tolerate Close being called from another goroutine.
type Conn interface {
	// BytesAvailable reports how many received bytes are buffered and
	// ready to read without blocking.
	BytesAvailable() int

	// ReadLine reads one newline-terminated line, including the
	// terminator. It returns ErrReadTimeout if no complete line
	// arrives within timeout, ErrClosed after Close, and ctx.Err()
	// as soon as ctx is cancelled, so a starved read never delays
	// shutdown.
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)

	// Write sends raw bytes out the line.
	Write(p []byte) (int, error)

	// FlushInput discards all buffered received bytes.
	FlushInput() error

	// FlushOutput discards any unsent transmit bytes.
	FlushOutput() error

	Close() error
}

// lineBuffer accumulates received bytes and hands out complete lines.
// It is the common receive path of the real port and the simulator:
// a producer goroutine calls feed, consumers call the Conn-shaped
// methods.
type lineBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	err    error
	notify chan struct{}
	closed bool
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{notify: make(chan struct{}, 1)}
}

// feed appends received bytes and wakes any blocked reader.
func (b *lineBuffer) feed(p []byte) {
	b.mu.Lock()
	if !b.closed {
		b.buf.Write(p)
	}
	b.mu.Unlock()
	b.wake()
}

// fail records a terminal receive error. Readers see it once the
// buffered lines are drained.
func (b *lineBuffer) fail(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
	b.wake()
}

func (b *lineBuffer) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *lineBuffer) available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *lineBuffer) flush() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

func (b *lineBuffer) close() {
	b.mu.Lock()
	b.closed = true
	if b.err == nil {
		b.err = ErrClosed
	}
	b.buf.Reset()
	b.mu.Unlock()
	b.wake()
}

// takeLine pops one complete line if present. ok is false when no
// terminator has been buffered yet.
func (b *lineBuffer) takeLine() (line string, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.buf.Bytes()
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = string(data[:i+1])
		b.buf.Next(i + 1)
		return line, true, nil
	}
	return "", false, b.err
}

// readLine blocks until a complete line arrives, the deadline passes,
// ctx is cancelled, or the buffer is failed/closed.
func (b *lineBuffer) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		line, ok, err := b.takeLine()
		if ok {
			return line, nil
		}
		if err != nil {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		remain := time.Until(deadline)
		if timeout > 0 && remain <= 0 {
			return "", ErrReadTimeout
		}
		if timeout <= 0 {
			select {
			case <-b.notify:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}
		t := time.NewTimer(remain)
		select {
		case <-b.notify:
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
			return "", ErrReadTimeout
		}
	}
}
