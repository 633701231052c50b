package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/names"
	"github.com/tinytelemetry/serialscope/internal/table"
)

// fakeSource feeds queued lines and then blocks until interrupted, closed
// or until an error is injected.
type fakeSource struct {
	lines       chan []byte
	errs        chan error
	closed      chan struct{}
	interrupted chan struct{}
	once        sync.Once
	intOnce     sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lines:       make(chan []byte, 64),
		errs:        make(chan error, 1),
		closed:      make(chan struct{}),
		interrupted: make(chan struct{}),
	}
}

func (f *fakeSource) ReadLine() ([]byte, error) {
	select {
	case l := <-f.lines:
		return l, nil
	case err := <-f.errs:
		return nil, err
	case <-f.closed:
		return nil, linesource.ErrClosed
	case <-f.interrupted:
		return nil, linesource.ErrClosed
	}
}

func (f *fakeSource) Interrupt() {
	f.intOnce.Do(func() { close(f.interrupted) })
}

func (f *fakeSource) IsOpen() bool {
	select {
	case <-f.closed:
		return false
	default:
		return true
	}
}

func (f *fakeSource) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSource) Name() string { return "fake" }

type recordingConsole struct {
	mu    sync.Mutex
	lines []string
}

func (c *recordingConsole) AppendLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *recordingConsole) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStreamReader_ForwardsRecognizedPoints(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	store := table.NewStore()
	console := &recordingConsole{}
	dropped := &recordingConsole{}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	r := NewStreamReader(Config{
		Source:  src,
		Names:   names.NewSet("temp"),
		Sink:    store,
		Console: console,
		Dropped: dropped,
		Clock:   func() time.Time { return clock },
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != StateRunning {
		t.Fatalf("state = %v, want running", r.State())
	}
	if r.Session() == "" {
		t.Fatal("session id not assigned")
	}

	src.lines <- []byte("boot ok")
	src.lines <- []byte("temp,21.5")
	src.lines <- []byte("pressure,1000")
	src.lines <- []byte("")

	waitFor(t, "three console lines", func() bool { return len(console.snapshot()) == 3 })

	r.Stop()
	_ = src.Close()
	r.Wait()

	snap := store.Snapshot()
	if len(snap.Rows) != 1 || snap.Rows[0].Fields()[1] != "21.5" {
		t.Fatalf("table = %+v, want one temp row", snap)
	}
	stats := r.Stats()
	if stats.Lines != 3 || stats.Points != 1 || stats.Misses != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := dropped.snapshot(); len(got) != 2 || got[0] != "boot ok" || got[1] != "pressure,1000" {
		t.Fatalf("dropped lines = %q", got)
	}
	if r.State() != StateStopped {
		t.Fatalf("state after Wait = %v, want stopped", r.State())
	}
}

func TestStreamReader_TransportErrorReportedOnce(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	var mu sync.Mutex
	var reported []error

	r := NewStreamReader(Config{
		Source: src,
		Names:  names.NewSet(),
		Sink:   table.NewStore(),
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		},
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	boom := errors.New("device unplugged")
	src.errs <- boom
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	if !errors.Is(reported[0], boom) {
		t.Fatalf("reported %v, want wrapped %v", reported[0], boom)
	}
	if r.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", r.State())
	}
}

func TestStreamReader_SelfTerminationCancelsRunContext(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	r := NewStreamReader(Config{Source: src, Names: names.NewSet(), Sink: table.NewStore()})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.mu.Lock()
	runCtx := r.runCtx
	r.mu.Unlock()

	src.errs <- io.EOF
	r.Wait()

	select {
	case <-runCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run context still live after the loop ended on its own")
	}
}

func TestStreamReader_StopDoesNotReportError(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	called := false
	r := NewStreamReader(Config{
		Source:  src,
		Names:   names.NewSet(),
		Sink:    table.NewStore(),
		OnError: func(error) { called = true },
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r.Stop()
	r.Stop()
	_ = src.Close()
	r.Wait()

	if called {
		t.Fatal("OnError called for a user stop")
	}
}

func TestStreamReader_StartPreconditions(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	r := NewStreamReader(Config{Source: src, Names: names.NewSet(), Sink: table.NewStore()})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}
	r.Stop()
	_ = src.Close()
	r.Wait()

	if err := r.Start(context.Background()); !errors.Is(err, ErrSourceNotOpen) {
		t.Fatalf("Start on closed source err = %v, want ErrSourceNotOpen", err)
	}
}

func TestStreamReader_WaitBeforeStartReturns(t *testing.T) {
	t.Parallel()

	r := NewStreamReader(Config{})
	r.Stop()
	r.Wait()
	if r.State() != StateStopped {
		t.Fatal("fresh reader should be stopped")
	}
}

func TestStreamReader_ParentContextCancels(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	r := NewStreamReader(Config{Source: src, Names: names.NewSet(), Sink: table.NewStore()})
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	src.lines <- []byte("wake")

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not exit after parent cancel")
	}
}

func TestStreamReader_EndOfReplay(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	var got error
	r := NewStreamReader(Config{
		Source:  src,
		Names:   names.NewSet("temp"),
		Sink:    table.NewStore(),
		OnError: func(err error) { got = err },
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.errs <- io.EOF
	r.Wait()

	if !errors.Is(got, io.EOF) {
		t.Fatalf("reported %v, want io.EOF", got)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	if s, lossy := Decode([]byte("temp,21.5")); s != "temp,21.5" || lossy {
		t.Errorf("Decode(ascii) = %q, %v", s, lossy)
	}
	if s, lossy := Decode([]byte("t°C,1")); s != "t°C,1" || lossy {
		t.Errorf("Decode(utf8) = %q, %v", s, lossy)
	}
	if s, lossy := Decode([]byte{'t', 0xff, ',', '1'}); s != "t?,1" || !lossy {
		t.Errorf("Decode(invalid) = %q, %v", s, lossy)
	}
}
