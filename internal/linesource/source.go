// Package linesource provides the line-oriented transports the stream
// reader consumes: serial ports, stdin and replay files.
package linesource

import "errors"

// ErrClosed is returned by ReadLine after the source has been closed.
var ErrClosed = errors.New("linesource: source closed")

// LineSource yields newline-delimited lines from a device or stream.
//
// ReadLine blocks until a full line is available, the source's own read
// timeout elapses, or the transport fails. An idle timeout is reported as
// an empty line with a nil error so callers can check for cancellation.
// The returned slice is only valid until the next ReadLine call.
type LineSource interface {
	ReadLine() ([]byte, error)
	IsOpen() bool
	Close() error
	Name() string
}

// Interrupter is implemented by sources that can abandon a pending ReadLine
// without releasing the transport. After Interrupt, ReadLine returns
// ErrClosed. Disconnect interrupts, waits for the reader, then closes.
type Interrupter interface {
	Interrupt()
}
