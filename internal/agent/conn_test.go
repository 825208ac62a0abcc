package agent

import (
	"context"
	"sync"
	"time"

	"github.com/telemlab/nmealog/internal/serialport"
)

// fakeConn is a scriptable transport for loop tests. Lines are queued
// whole; ReadLine pops one per call.
type fakeConn struct {
	mu      sync.Mutex
	lines   []string
	closed  bool
	closes  int
	flushes int
	sent    []byte
}

func (c *fakeConn) feed(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, lines...)
}

func (c *fakeConn) BytesAvailable() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += len(l)
	}
	return n
}

func (c *fakeConn) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return "", serialport.ErrClosed
		}
		if len(c.lines) > 0 {
			line := c.lines[0]
			c.lines = c.lines[1:]
			c.mu.Unlock()
			return line, nil
		}
		c.mu.Unlock()
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if time.Now().After(deadline) {
			return "", serialport.ErrReadTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, p...)
	return len(p), nil
}

func (c *fakeConn) FlushInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.flushes++
	return nil
}

func (c *fakeConn) FlushOutput() error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closes++
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) flushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}
