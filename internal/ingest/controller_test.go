package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/names"
	"github.com/tinytelemetry/serialscope/internal/table"
)

// timeoutSource behaves like a serial port with a read timeout: every
// ReadLine blocks for delay and then reports an idle line. It records
// whether Close ran while a read was still in flight.
type timeoutSource struct {
	delay time.Duration

	inFlight    atomic.Bool
	closed      atomic.Bool
	closedEarly atomic.Bool
}

func (s *timeoutSource) ReadLine() ([]byte, error) {
	if s.closed.Load() {
		return nil, linesource.ErrClosed
	}
	s.inFlight.Store(true)
	time.Sleep(s.delay)
	s.inFlight.Store(false)
	return nil, nil
}

func (s *timeoutSource) IsOpen() bool { return !s.closed.Load() }
func (s *timeoutSource) Name() string { return "timeout" }

func (s *timeoutSource) Close() error {
	if s.inFlight.Load() {
		s.closedEarly.Store(true)
	}
	s.closed.Store(true)
	return nil
}

func newTestController(onEnd func(string, error)) (*Controller, *table.Store) {
	store := table.NewStore()
	c := NewController(ControllerConfig{
		Names: names.NewSet("temp"),
		Sink:  store,
		OnEnd: onEnd,
	})
	return c, store
}

func TestController_ConnectDisconnect(t *testing.T) {
	t.Parallel()

	c, store := newTestController(nil)
	src := newFakeSource()
	if err := c.Connect(context.Background(), src); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	src.lines <- []byte("temp,1.5")
	waitFor(t, "row", func() bool { return store.RowCount() == 1 })

	st := c.Status()
	if !st.Connected || st.Source != "fake" || st.State != "running" || st.Session == "" {
		t.Fatalf("status = %+v", st)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if src.IsOpen() {
		t.Fatal("source still open after Disconnect")
	}
	st = c.Status()
	if st.Connected || st.Stats.Points != 1 {
		t.Fatalf("status after disconnect = %+v", st)
	}
	if err := c.Disconnect(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("second Disconnect err = %v, want ErrNotConnected", err)
	}
}

func TestController_ConnectReplacesSource(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil)
	first, second := newFakeSource(), newFakeSource()
	if err := c.Connect(context.Background(), first); err != nil {
		t.Fatalf("Connect first: %v", err)
	}
	if err := c.Connect(context.Background(), second); err != nil {
		t.Fatalf("Connect second: %v", err)
	}
	if first.IsOpen() {
		t.Fatal("first source not closed on reconnect")
	}
	_ = c.Disconnect()
}

func TestController_ConnectClosedSource(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil)
	src := newFakeSource()
	_ = src.Close()
	if err := c.Connect(context.Background(), src); !errors.Is(err, ErrSourceNotOpen) {
		t.Fatalf("err = %v, want ErrSourceNotOpen", err)
	}
	if c.Connected() {
		t.Fatal("Connected after failed Connect")
	}
}

func TestController_TransportErrorEndsConnection(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var endedErr error
	done := make(chan struct{})
	c, _ := newTestController(func(_ string, err error) {
		mu.Lock()
		endedErr = err
		mu.Unlock()
		close(done)
	})

	src := newFakeSource()
	if err := c.Connect(context.Background(), src); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	boom := errors.New("device unplugged")
	src.errs <- boom
	<-done

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(endedErr, boom) {
		t.Fatalf("OnEnd err = %v, want wrapped %v", endedErr, boom)
	}
	if c.Connected() {
		t.Fatal("still connected after transport error")
	}
	if src.IsOpen() {
		t.Fatal("source not closed after transport error")
	}
}

func TestController_DisconnectClosesAfterLoopExit(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil)
	src := &timeoutSource{delay: 200 * time.Millisecond}
	if err := c.Connect(context.Background(), src); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if src.closedEarly.Load() {
		t.Fatal("source closed while ReadLine was still in flight")
	}
	if src.IsOpen() {
		t.Fatal("source not closed after Disconnect")
	}
}

func TestController_DisconnectInterruptsBlockingSource(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil)
	pr, pw := io.Pipe()
	defer pw.Close()
	src := linesource.NewInterruptibleSource("pipe", pr)
	if err := c.Connect(context.Background(), src); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Disconnect() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Disconnect: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect hung on a source with no read timeout")
	}
	if src.IsOpen() {
		t.Fatal("source not closed after Disconnect")
	}
}

func TestController_ConcurrentConnectsLeaveOneReader(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(nil)
	const n = 8
	sources := make([]*fakeSource, n)
	for i := range sources {
		sources[i] = newFakeSource()
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Connect(context.Background(), src); err != nil {
				t.Errorf("Connect: %v", err)
			}
		}()
	}
	wg.Wait()

	open := 0
	for _, src := range sources {
		if src.IsOpen() {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("%d sources still open after concurrent connects, want 1", open)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	for i, src := range sources {
		if src.IsOpen() {
			t.Fatalf("source %d still open after Disconnect", i)
		}
	}
}
