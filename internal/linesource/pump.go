package linesource

import (
	"errors"
	"io"
	"sync"
)

var errInterrupted = errors.New("linesource: read interrupted")

type pumpChunk struct {
	data []byte
	err  error
}

// pumpReader performs blocking reads on its own goroutine and hands the
// results over a channel, so a caller can stop waiting without closing rc.
type pumpReader struct {
	rc     io.ReadCloser
	chunks chan pumpChunk
	stop   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	pend []byte
	err  error
}

func newPumpReader(rc io.ReadCloser) *pumpReader {
	return &pumpReader{
		rc:     rc,
		chunks: make(chan pumpChunk),
		stop:   make(chan struct{}),
	}
}

func (p *pumpReader) loop() {
	for {
		buf := make([]byte, DefaultReadBufferSize)
		n, err := p.rc.Read(buf)
		select {
		case p.chunks <- pumpChunk{data: buf[:n], err: err}:
		case <-p.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *pumpReader) Read(b []byte) (int, error) {
	if len(p.pend) > 0 {
		n := copy(b, p.pend)
		p.pend = p.pend[n:]
		return n, nil
	}
	if p.err != nil {
		return 0, p.err
	}
	p.startOnce.Do(func() { go p.loop() })

	select {
	case c := <-p.chunks:
		n := copy(b, c.data)
		p.pend = c.data[n:]
		if c.err != nil {
			p.err = c.err
			if n == 0 {
				return 0, c.err
			}
		}
		return n, nil
	case <-p.stop:
		return 0, errInterrupted
	}
}

func (p *pumpReader) interrupt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *pumpReader) Close() error {
	p.interrupt()
	return p.rc.Close()
}
