package tui

import (
	"strings"
	"sync"

	"github.com/tinytelemetry/serialscope/internal/model"
)

// Console is a bounded, concurrency-safe line buffer. The reader goroutine
// appends device lines; the UI reads it on each tick.
type Console struct {
	mu      sync.Mutex
	lines   []string
	start   int // ring head once the buffer is full
	max     int
	version uint64
}

var _ model.LineSink = (*Console)(nil)

// NewConsole creates a console keeping at most maxLines lines.
func NewConsole(maxLines int) *Console {
	if maxLines <= 0 {
		maxLines = model.DefaultConsoleLines
	}
	return &Console{lines: make([]string, 0, min(maxLines, 1024)), max: maxLines}
}

// AppendLine adds one line, evicting the oldest when full.
func (c *Console) AppendLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	if len(c.lines) < c.max {
		c.lines = append(c.lines, line)
		return
	}
	c.lines[c.start] = line
	c.start = (c.start + 1) % c.max
}

// Lines returns the buffered lines oldest first and the buffer version.
func (c *Console) Lines() ([]string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.lines))
	out = append(out, c.lines[c.start:]...)
	out = append(out, c.lines[:c.start]...)
	return out, c.version
}

// Version changes on every append.
func (c *Console) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// String joins the buffered lines.
func (c *Console) String() string {
	lines, _ := c.Lines()
	return strings.Join(lines, "\n")
}
