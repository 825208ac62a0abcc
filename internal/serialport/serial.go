package serialport

import (
	"context"
	"fmt"
	"io"
	"time"

	serial "go.bug.st/serial"
)

// Port is a Conn backed by a physical serial device. A pump goroutine
// drains the OS receive buffer into a lineBuffer so BytesAvailable and
// bounded ReadLine work without touching the device on every call.
type Port struct {
	port serial.Port
	rx   *lineBuffer
	dev  string
	done chan struct{}
}

// Open opens the serial device at 8N1 with the given baud rate and
// starts the receive pump.
func Open(dev string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(dev, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", dev, err)
	}
	// A short device timeout keeps the pump responsive to Close
	// without burning CPU when the line is quiet.
	if err := sp.SetReadTimeout(100 * time.Millisecond); err != nil {
		sp.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", dev, err)
	}

	p := &Port{
		port: sp,
		rx:   newLineBuffer(),
		dev:  dev,
		done: make(chan struct{}),
	}
	go p.pump()
	return p, nil
}

// pump copies device bytes into the line buffer until Close or a
// terminal read error.
func (p *Port) pump() {
	buf := make([]byte, 512)
	for {
		select {
		case <-p.done:
			return
		default:
		}
		n, err := p.port.Read(buf)
		if n > 0 {
			p.rx.feed(buf[:n])
		}
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			if err == io.EOF {
				// go.bug.st returns n==0, err==nil on timeout;
				// EOF here means the device went away.
				p.rx.fail(fmt.Errorf("serial %s: %w", p.dev, io.EOF))
				return
			}
			p.rx.fail(fmt.Errorf("serial %s read: %w", p.dev, err))
			return
		}
	}
}

func (p *Port) BytesAvailable() int { return p.rx.available() }

func (p *Port) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	return p.rx.readLine(ctx, timeout)
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// FlushInput discards both the pump's buffered bytes and anything
// still sitting in the OS receive buffer.
func (p *Port) FlushInput() error {
	p.rx.flush()
	return p.port.ResetInputBuffer()
}

func (p *Port) FlushOutput() error {
	return p.port.ResetOutputBuffer()
}

// Close stops the pump and closes the device. Safe to call once.
func (p *Port) Close() error {
	close(p.done)
	err := p.port.Close()
	p.rx.close()
	return err
}
