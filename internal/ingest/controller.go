package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/model"
)

// ErrNotConnected is returned by Disconnect when no source is attached.
var ErrNotConnected = errors.New("ingest: not connected")

// ControllerConfig holds the collaborators shared by every connection.
type ControllerConfig struct {
	Names   model.NameSet
	Sink    model.PointSink
	Console model.LineSink
	Dropped model.LineSink
	// OnEnd is called when a run ends on its own (transport error or end
	// of stream). It is not called for Disconnect.
	OnEnd func(source string, err error)
}

// Status describes the current connection.
type Status struct {
	Connected bool   `json:"connected"`
	Source    string `json:"source,omitempty"`
	State     string `json:"state"`
	Session   string `json:"session,omitempty"`
	Stats     Stats  `json:"stats"`
}

// Controller owns at most one live source and its reader. Connect and
// Disconnect may be called from any goroutine; they are serialized so a
// reader is never displaced without being stopped.
type Controller struct {
	cfg ControllerConfig

	// connMu serializes Connect and Disconnect. mu guards the fields below
	// and is never held while waiting on a reader.
	connMu sync.Mutex
	mu     sync.Mutex
	source linesource.LineSource
	reader *StreamReader
	total  Stats
}

// NewController creates a disconnected controller.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Connect attaches src and starts reading it. Any previous connection is
// torn down first. On failure src is closed.
func (c *Controller) Connect(ctx context.Context, src linesource.LineSource) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	_ = c.disconnect()

	r := NewStreamReader(Config{
		Source:  src,
		Names:   c.cfg.Names,
		Sink:    c.cfg.Sink,
		Console: c.cfg.Console,
		Dropped: c.cfg.Dropped,
		OnError: func(err error) { c.ended(src, err) },
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := r.Start(ctx); err != nil {
		_ = src.Close()
		return fmt.Errorf("connect %s: %w", src.Name(), err)
	}
	c.source = src
	c.reader = r
	return nil
}

// Disconnect stops the reader, waits for the loop to exit and then closes
// the source. Sources implementing linesource.Interrupter have their pending
// read released first; a serial port returns within its read timeout.
// It reports ErrNotConnected when nothing was attached.
func (c *Controller) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.disconnect()
}

func (c *Controller) disconnect() error {
	c.mu.Lock()
	src, r := c.source, c.reader
	c.source, c.reader = nil, nil
	if r != nil {
		c.total = addStats(c.total, r.Stats())
	}
	c.mu.Unlock()

	if r == nil {
		return ErrNotConnected
	}
	r.Stop()
	if in, ok := src.(linesource.Interrupter); ok {
		in.Interrupt()
	}
	r.Wait()
	if err := src.Close(); err != nil {
		log.Printf("ingest: close %s: %v", src.Name(), err)
	}
	return nil
}

// Connected reports whether a source is attached.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source != nil
}

// Status returns the connection state and cumulative counters.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{State: StateStopped.String(), Stats: c.total}
	if c.reader != nil {
		st.Connected = true
		st.Source = c.source.Name()
		st.State = c.reader.State().String()
		st.Session = c.reader.Session()
		st.Stats = addStats(c.total, c.reader.Stats())
	}
	return st
}

// ended runs on the reader goroutine when a run terminates by itself.
func (c *Controller) ended(src linesource.LineSource, err error) {
	c.mu.Lock()
	current := c.source == src
	if current {
		c.total = addStats(c.total, c.reader.Stats())
		c.source, c.reader = nil, nil
	}
	c.mu.Unlock()
	if !current {
		return
	}

	_ = src.Close()
	if c.cfg.OnEnd != nil {
		c.cfg.OnEnd(src.Name(), err)
	}
}

func addStats(a, b Stats) Stats {
	return Stats{
		Lines:     a.Lines + b.Lines,
		Points:    a.Points + b.Points,
		Misses:    a.Misses + b.Misses,
		Fallbacks: a.Fallbacks + b.Fallbacks,
	}
}
