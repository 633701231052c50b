// Package lineparse turns raw device lines of the form "<name>,<value>"
// into data points.
package lineparse

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/serialscope/internal/model"
)

// Parse extracts at most one data point from line.
//
// The line is split on its first comma. Any further commas remain in the
// value field and make it fail numeric parsing, so such lines are dropped.
// Names not present in recognized are ignored. The point is stamped with
// now truncated to milliseconds, not with anything found in the line.
func Parse(line string, recognized model.NameSet, now time.Time) (model.DataPoint, bool) {
	if recognized == nil {
		return model.DataPoint{}, false
	}
	name, raw, ok := strings.Cut(strings.TrimSpace(line), ",")
	if !ok {
		return model.DataPoint{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" || !recognized.Contains(name) {
		return model.DataPoint{}, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return model.DataPoint{}, false
	}

	return model.DataPoint{
		Name:      name,
		Value:     value,
		Timestamp: now.Truncate(time.Millisecond),
	}, true
}
