package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptyView is returned when a view has no visible points to draw.
var ErrEmptyView = errors.New("chart: nothing to render")

// PNGConfig sizes a rendered image.
type PNGConfig struct {
	Width  int
	Height int
	Title  string
}

const (
	defaultPNGWidth  = 1200
	defaultPNGHeight = 600
	xTickCount       = 6
	xTickLayout      = "15:04:05"
)

var palette = []drawing.Color{
	gochart.ColorBlue,
	gochart.ColorRed,
	gochart.ColorGreen,
	gochart.ColorOrange,
	gochart.ColorCyan,
	gochart.ColorYellow,
}

// RenderPNG draws v as a line chart and writes the PNG to w.
func RenderPNG(v View, w io.Writer, conf ...PNGConfig) error {
	cfg := PNGConfig{Width: defaultPNGWidth, Height: defaultPNGHeight}
	if len(conf) > 0 {
		if conf[0].Width > 0 {
			cfg.Width = conf[0].Width
		}
		if conf[0].Height > 0 {
			cfg.Height = conf[0].Height
		}
		cfg.Title = conf[0].Title
	}
	if v.Visible == 0 {
		return ErrEmptyView
	}

	series := make([]gochart.Series, 0, len(v.Series))
	for i, s := range v.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(s.Points)+1)
		ys := make([]float64, 0, len(s.Points)+1)
		for _, p := range s.Points {
			xs = append(xs, p.Time)
			ys = append(ys, p.Value)
		}
		// go-chart needs two X values per series.
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Millisecond))
			ys = append(ys, ys[0])
		}
		col := palette[i%len(palette)]
		series = append(series, gochart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    3,
			},
		})
	}

	minX := gochart.TimeToFloat64(v.Start)
	maxX := gochart.TimeToFloat64(v.End)
	if maxX <= minX {
		maxX = minX + 1
	}

	ch := gochart.Chart{
		Title:      cfg.Title,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 16, Bottom: 36}},
		XAxis: gochart.XAxis{
			Name:  "Time",
			Range: &gochart.ContinuousRange{Min: minX, Max: maxX},
			Ticks: timeTicks(v.Start, v.End),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: v.YMin, Max: v.YMax},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func timeTicks(start, end time.Time) []gochart.Tick {
	span := end.Sub(start)
	if span <= 0 {
		return nil
	}
	step := span / xTickCount
	ticks := make([]gochart.Tick, 0, xTickCount+1)
	for i := 0; i <= xTickCount; i++ {
		t := start.Add(time.Duration(i) * step)
		ticks = append(ticks, gochart.Tick{
			Value: gochart.TimeToFloat64(t),
			Label: t.Local().Format(xTickLayout),
		})
	}
	return ticks
}
