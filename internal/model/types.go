package model

import "time"

// DataPoint is a single named numeric observation.
// It is produced by the line parser and never mutated afterwards.
type DataPoint struct {
	Name      string
	Value     float64
	Timestamp time.Time
}

// FormatTimestamp renders t in local time with millisecond precision. The
// result is the table row key. During a DST fall-back hour two instants one
// hour apart format identically; table rows keep the exact instant beside
// the key for that reason.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// ParseTimestamp parses a row key produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	ts, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
