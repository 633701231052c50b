// Package chart computes what a live time-series chart should show: the
// visible time span, per-series points and axis ranges. It does not draw.
package chart

import (
	"time"

	"github.com/tinytelemetry/serialscope/internal/model"
	"github.com/tinytelemetry/serialscope/internal/table"
)

const (
	// DefaultYMin and DefaultYMax bound the Y axis when nothing is visible.
	DefaultYMin = 0.0
	DefaultYMax = 1.0

	// yPadRatio pads the visible value span on both sides.
	yPadRatio = 0.10
	// flatPad is used instead when every visible value is equal.
	flatPad = 1.0
)

// Config sets the window geometry.
type Config struct {
	Duration time.Duration
	Step     time.Duration
	Clock    func() time.Time
}

// Point is one plotted sample.
type Point struct {
	Time  time.Time
	Value float64
}

// Series holds the visible points of one table column.
type Series struct {
	Name   string
	Points []Point
}

// View is everything a renderer needs for one frame.
type View struct {
	Start      time.Time
	End        time.Time
	FollowLive bool
	Series     []Series
	YMin       float64
	YMax       float64
	Visible    int // total visible points across all series
}

// Window is the time-window state machine. It is not safe for concurrent
// use; the presentation loop owns it.
type Window struct {
	end        time.Time
	duration   time.Duration
	step       time.Duration
	followLive bool
	clock      func() time.Time
}

// NewWindow creates a window that follows live data, ending at now.
func NewWindow(cfg Config) *Window {
	if cfg.Duration <= 0 {
		cfg.Duration = model.DefaultWindowDuration
	}
	if cfg.Step <= 0 {
		cfg.Step = model.DefaultScrollStep
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Window{
		end:        cfg.Clock(),
		duration:   cfg.Duration,
		step:       cfg.Step,
		followLive: true,
		clock:      cfg.Clock,
	}
}

func (w *Window) End() time.Time          { return w.end }
func (w *Window) Start() time.Time        { return w.end.Add(-w.duration) }
func (w *Window) Duration() time.Duration { return w.duration }
func (w *Window) Step() time.Duration     { return w.step }
func (w *Window) FollowLive() bool        { return w.followLive }

// Refresh advances a live window and computes the view for snap.
// While following live, End moves to the latest of its current value, the
// newest data and the wall clock, so it never moves backwards and keeps
// scrolling when no data arrives. A pinned window is left where it is.
func (w *Window) Refresh(snap table.Snapshot) View {
	if w.followLive {
		now := w.clock()
		if snap.Newest.After(w.end) {
			w.end = snap.Newest
		}
		if now.After(w.end) {
			w.end = now
		}
	}
	return w.view(snap)
}

// ScrollBack pins the window and moves it one step into the past.
func (w *Window) ScrollBack() {
	w.followLive = false
	w.end = w.end.Add(-w.step)
}

// ScrollForward moves the window one step forward. Reaching or passing
// the wall clock resumes following live, clamped to now.
func (w *Window) ScrollForward() {
	w.end = w.end.Add(w.step)
	now := w.clock()
	if !w.end.Before(now) {
		w.followLive = true
		w.end = now
	}
}

// GoLive resumes following live data immediately.
func (w *Window) GoLive() {
	w.followLive = true
	if now := w.clock(); now.After(w.end) {
		w.end = now
	}
}

func (w *Window) view(snap table.Snapshot) View {
	start := w.Start()
	v := View{
		Start:      start,
		End:        w.end,
		FollowLive: w.followLive,
	}

	cols := len(snap.Headers) - 1
	if cols <= 0 {
		v.YMin, v.YMax = DefaultYMin, DefaultYMax
		return v
	}
	v.Series = make([]Series, cols)
	for i := range v.Series {
		v.Series[i].Name = snap.Headers[i+1]
	}

	first := true
	var lo, hi float64
	for _, row := range snap.Rows {
		t, ok := row.Time()
		if !ok || t.Before(start) || t.After(w.end) {
			continue
		}
		for c, cell := range row.Cells {
			if !cell.Valid || c >= cols {
				continue
			}
			v.Series[c].Points = append(v.Series[c].Points, Point{Time: t, Value: cell.Value})
			v.Visible++
			if first {
				lo, hi = cell.Value, cell.Value
				first = false
				continue
			}
			lo = min(lo, cell.Value)
			hi = max(hi, cell.Value)
		}
	}

	v.YMin, v.YMax = yRange(lo, hi, !first)
	return v
}

// yRange pads [lo, hi] so the axis never collapses to zero height.
func yRange(lo, hi float64, ok bool) (float64, float64) {
	if !ok {
		return DefaultYMin, DefaultYMax
	}
	if lo == hi {
		return lo - flatPad, hi + flatPad
	}
	pad := (hi - lo) * yPadRatio
	return lo - pad, hi + pad
}
