package linesource

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

const (
	// DefaultReadBufferSize is the size of a single transport read.
	DefaultReadBufferSize = 4096

	// DefaultMaxLineSize caps a single line. Longer input is split.
	DefaultMaxLineSize = 64 * 1024
)

// StreamConfig holds tunable parameters for a stream source.
type StreamConfig struct {
	ReadBufferSize int
	MaxLineSize    int
}

// StreamSource frames an io.ReadCloser into lines. A Read that returns no
// bytes and no error (a serial read timeout) surfaces as an idle empty line.
type StreamSource struct {
	name   string
	rc     io.ReadCloser
	buf    []byte
	pend   []byte
	line   []byte
	maxLen int

	open        atomic.Bool
	interrupted atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// NewStreamSource wraps rc as a LineSource.
func NewStreamSource(name string, rc io.ReadCloser, conf ...StreamConfig) *StreamSource {
	readSize := DefaultReadBufferSize
	maxLen := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].ReadBufferSize > 0 {
			readSize = conf[0].ReadBufferSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLen = conf[0].MaxLineSize
		}
	}
	s := &StreamSource{
		name:   name,
		rc:     rc,
		buf:    make([]byte, readSize),
		maxLen: maxLen,
	}
	s.open.Store(true)
	return s
}

// NewInterruptibleSource wraps a transport that has no read timeout, such
// as a pipe. Reads run on a helper goroutine so Interrupt can release a
// pending ReadLine immediately.
func NewInterruptibleSource(name string, rc io.ReadCloser, conf ...StreamConfig) *StreamSource {
	return NewStreamSource(name, newPumpReader(rc), conf...)
}

// NewStdinSource reads lines from the process's standard input. Stdin is
// never closed; after Interrupt the helper goroutine exits once the blocked
// read returns.
func NewStdinSource() *StreamSource {
	return NewInterruptibleSource("stdin", io.NopCloser(os.Stdin))
}

// OpenFile replays a file of recorded device output as a line source.
func OpenFile(path string) (*StreamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStreamSource(path, f), nil
}

// ReadLine returns the next line without its trailing "\r\n" or "\n".
func (s *StreamSource) ReadLine() ([]byte, error) {
	for {
		if !s.open.Load() || s.interrupted.Load() {
			return nil, ErrClosed
		}
		if idx := bytes.IndexByte(s.pend, '\n'); idx >= 0 && idx <= s.maxLen {
			return s.take(idx, idx+1), nil
		}
		if len(s.pend) >= s.maxLen {
			log.Printf("linesource: %s line exceeded max size (%d bytes), splitting", s.name, s.maxLen)
			return s.take(s.maxLen, s.maxLen), nil
		}

		n, err := s.rc.Read(s.buf)
		if n > 0 {
			s.pend = append(s.pend, s.buf[:n]...)
			continue
		}
		if err != nil {
			if !s.open.Load() || s.interrupted.Load() {
				return nil, ErrClosed
			}
			if errors.Is(err, io.EOF) && len(s.pend) > 0 {
				// Flush an unterminated final line before reporting EOF.
				return s.take(len(s.pend), len(s.pend)), nil
			}
			return nil, err
		}
		return s.line[:0], nil
	}
}

// take copies pend[:end] into the line buffer and drops pend[:consume].
func (s *StreamSource) take(end, consume int) []byte {
	s.line = append(s.line[:0], bytes.TrimSuffix(s.pend[:end], []byte("\r"))...)
	s.pend = append(s.pend[:0], s.pend[consume:]...)
	return s.line
}

func (s *StreamSource) IsOpen() bool { return s.open.Load() }
func (s *StreamSource) Name() string { return s.name }

// Interrupt makes the pending and every later ReadLine return ErrClosed.
// Sources built with NewInterruptibleSource return at once; others return
// when their current read completes or times out.
func (s *StreamSource) Interrupt() {
	s.interrupted.Store(true)
	if p, ok := s.rc.(*pumpReader); ok {
		p.interrupt()
	}
}

// Close closes the underlying transport. It is safe to call more than once.
func (s *StreamSource) Close() error {
	s.closeOnce.Do(func() {
		s.open.Store(false)
		s.closeErr = s.rc.Close()
	})
	return s.closeErr
}
