package model

import "time"

// NameSet answers whether a data-point name is currently recognized.
type NameSet interface {
	Contains(name string) bool
}

// PointSink receives parsed data points.
type PointSink interface {
	AddPoint(ts time.Time, name string, value float64)
}

// LineSink is the display surface that decoded lines and status messages
// are appended to.
type LineSink interface {
	AppendLine(line string)
}

// LineSinkFunc adapts a plain function to LineSink.
type LineSinkFunc func(line string)

func (f LineSinkFunc) AppendLine(line string) { f(line) }
