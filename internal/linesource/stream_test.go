package linesource

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// chunkReader returns one chunk per Read call; an empty chunk simulates a
// serial read timeout.
type chunkReader struct {
	mu     sync.Mutex
	chunks []string
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, errors.New("port closed")
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return copy(p, c), nil
}

func (r *chunkReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func readAll(t *testing.T, src LineSource) []string {
	t.Helper()
	var lines []string
	for {
		line, err := src.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("ReadLine: %v", err)
			}
			return lines
		}
		lines = append(lines, string(line))
	}
}

func TestStreamSource_FramesLines(t *testing.T) {
	t.Parallel()

	src := NewStreamSource("test", &chunkReader{chunks: []string{"temp,2", "1.5\r\nhum,55\n", "tail"}})
	got := readAll(t, src)
	want := []string{"temp,21.5", "hum,55", "tail"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestStreamSource_IdleReadYieldsEmptyLine(t *testing.T) {
	t.Parallel()

	src := NewStreamSource("test", &chunkReader{chunks: []string{"", "a\n"}})
	line, err := src.ReadLine()
	if err != nil || len(line) != 0 {
		t.Fatalf("first ReadLine = %q, %v; want empty idle line", line, err)
	}
	line, err = src.ReadLine()
	if err != nil || string(line) != "a" {
		t.Fatalf("second ReadLine = %q, %v; want \"a\"", line, err)
	}
}

func TestStreamSource_SplitsOverlongLines(t *testing.T) {
	t.Parallel()

	src := NewStreamSource("test", &chunkReader{chunks: []string{"abcdefgh\n"}}, StreamConfig{MaxLineSize: 5})
	got := readAll(t, src)
	if strings.Join(got, "|") != "abcde|fgh" {
		t.Fatalf("lines = %q", got)
	}
}

func TestStreamSource_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	src := NewStreamSource("test", &chunkReader{chunks: []string{"a\n"}})
	if !src.IsOpen() {
		t.Fatal("new source should be open")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if src.IsOpen() {
		t.Fatal("source still open after Close")
	}
	if _, err := src.ReadLine(); !errors.Is(err, ErrClosed) {
		t.Fatalf("ReadLine after Close err = %v, want ErrClosed", err)
	}
}

func TestStreamSource_CloseUnblocksPipeRead(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := NewStreamSource("pipe", r)
	errCh := make(chan error, 1)
	go func() {
		_, err := src.ReadLine()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = src.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("ReadLine err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for blocked ReadLine to return")
	}
}

func TestInterruptibleSource_InterruptKeepsTransport(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	defer pw.Close()

	src := NewInterruptibleSource("pipe", pr)
	if _, err := pw.Write([]byte("a\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if line, err := src.ReadLine(); err != nil || string(line) != "a" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := src.ReadLine()
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	src.Interrupt()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("ReadLine err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interrupt did not release the pending ReadLine")
	}
	if !src.IsOpen() {
		t.Fatal("Interrupt must not close the source")
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pw.Write([]byte("b\n")); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("write after Close err = %v, want io.ErrClosedPipe", err)
	}
}

func TestInterruptibleSource_FlushesFinalLine(t *testing.T) {
	t.Parallel()

	src := NewInterruptibleSource("test", io.NopCloser(strings.NewReader("x,1\ntail")))
	got := readAll(t, src)
	if strings.Join(got, "|") != "x,1|tail" {
		t.Fatalf("lines = %q", got)
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/capture.txt"
	if err := os.WriteFile(path, []byte("temp,1\nboot ok\n"), 0644); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	if got := readAll(t, src); len(got) != 2 || got[1] != "boot ok" {
		t.Fatalf("lines = %q", got)
	}
}

func TestOpenSerial_Validation(t *testing.T) {
	t.Parallel()

	if _, err := OpenSerial(SerialConfig{Port: "", BaudRate: 9600}); err == nil {
		t.Error("expected error for empty port")
	}
	if _, err := OpenSerial(SerialConfig{Port: "/dev/null-serial", BaudRate: 0}); err == nil {
		t.Error("expected error for zero baud")
	}
}
