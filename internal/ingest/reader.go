package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/serialscope/internal/lineparse"
	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/model"
)

var (
	ErrAlreadyRunning = errors.New("ingest: reader already running")
	ErrSourceNotOpen  = errors.New("ingest: line source is not open")
)

// State is the reader lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Config wires a StreamReader to its collaborators.
type Config struct {
	Source  linesource.LineSource
	Names   model.NameSet
	Sink    model.PointSink
	Console model.LineSink   // optional; receives every decoded line
	Dropped model.LineSink   // optional; receives lines the parser dropped
	OnError func(err error)  // optional; called at most once per run
	Clock   func() time.Time // optional; defaults to time.Now
}

// Stats counts what a reader has processed across all runs.
type Stats struct {
	Lines     uint64 `json:"lines"`     // non-empty lines read
	Points    uint64 `json:"points"`    // lines that produced a data point
	Misses    uint64 `json:"misses"`    // lines dropped by the parser
	Fallbacks uint64 `json:"fallbacks"` // lines decoded with the ASCII fallback
}

// StreamReader pulls lines from a LineSource on a dedicated goroutine,
// parses them and forwards recognized points to the sink.
//
// Stopping is cooperative: Stop cancels the run context and the loop exits
// after the read in progress returns. A source that reports ErrClosed after
// Stop (interrupted or closed) counts as a clean stop. The run context is
// cancelled whenever the loop exits, including on transport errors.
type StreamReader struct {
	cfg Config

	mu      sync.Mutex
	state   atomic.Int32
	cancel  context.CancelFunc
	runCtx  context.Context
	done    chan struct{}
	session string

	lines     atomic.Uint64
	points    atomic.Uint64
	misses    atomic.Uint64
	fallbacks atomic.Uint64
}

// NewStreamReader creates a stopped reader.
func NewStreamReader(cfg Config) *StreamReader {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	done := make(chan struct{})
	close(done)
	return &StreamReader{cfg: cfg, done: done}
}

// Start begins a new run. The source must be open.
func (r *StreamReader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if State(r.state.Load()) == StateRunning {
		return ErrAlreadyRunning
	}
	if r.cfg.Source == nil || !r.cfg.Source.IsOpen() {
		return ErrSourceNotOpen
	}
	if r.cfg.Names == nil || r.cfg.Sink == nil {
		return fmt.Errorf("ingest: reader requires a name set and a sink")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.runCtx = runCtx
	r.done = make(chan struct{})
	r.session = uuid.NewString()
	r.state.Store(int32(StateRunning))

	log.Printf("ingest: session %s started on %s", r.session, r.cfg.Source.Name())
	go r.run(runCtx, cancel, r.done, r.session)
	return nil
}

// Stop requests the run loop to exit. It is safe to call at any time and
// more than once.
func (r *StreamReader) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current run loop has exited.
func (r *StreamReader) Wait() {
	<-r.Done()
}

// Done returns a channel closed when the current run loop exits.
func (r *StreamReader) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// State returns the current lifecycle state.
func (r *StreamReader) State() State {
	return State(r.state.Load())
}

// Session returns the id of the most recent run, or "" before the first.
func (r *StreamReader) Session() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Stats returns cumulative counters.
func (r *StreamReader) Stats() Stats {
	return Stats{
		Lines:     r.lines.Load(),
		Points:    r.points.Load(),
		Misses:    r.misses.Load(),
		Fallbacks: r.fallbacks.Load(),
	}
}

func (r *StreamReader) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, session string) {
	defer close(done)
	defer r.state.Store(int32(StateStopped))
	defer cancel()

	src := r.cfg.Source
	for {
		if ctx.Err() != nil {
			log.Printf("ingest: session %s stopped", session)
			return
		}

		raw, err := src.ReadLine()
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, linesource.ErrClosed) {
				log.Printf("ingest: session %s stopped", session)
				return
			}
			r.report(session, fmt.Errorf("read %s: %w", src.Name(), err))
			return
		}
		if len(raw) == 0 {
			continue
		}
		r.handle(raw)
	}
}

func (r *StreamReader) handle(raw []byte) {
	line, lossy := Decode(raw)
	r.lines.Add(1)
	if lossy {
		r.fallbacks.Add(1)
	}
	if r.cfg.Console != nil {
		r.cfg.Console.AppendLine(line)
	}

	p, ok := lineparse.Parse(line, r.cfg.Names, r.cfg.Clock())
	if !ok {
		r.misses.Add(1)
		if r.cfg.Dropped != nil {
			r.cfg.Dropped.AppendLine(line)
		}
		return
	}
	r.cfg.Sink.AddPoint(p.Timestamp, p.Name, p.Value)
	r.points.Add(1)
}

func (r *StreamReader) report(session string, err error) {
	if errors.Is(err, io.EOF) {
		log.Printf("ingest: session %s reached end of stream", session)
	} else {
		log.Printf("ingest: session %s terminated: %v", session, err)
	}
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
}
