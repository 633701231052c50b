package lineparse

import (
	"testing"
	"time"

	"github.com/tinytelemetry/serialscope/internal/names"
)

func TestParse(t *testing.T) {
	t.Parallel()

	recognized := names.NewSet("temp", "hum")
	now := time.Date(2024, 1, 1, 12, 0, 0, 123456789, time.Local)

	tests := []struct {
		name  string
		line  string
		ok    bool
		point string
		value float64
	}{
		{"recognized", "temp,21.5", true, "temp", 21.5},
		{"trailing newline", "temp,21.5\r\n", true, "temp", 21.5},
		{"spaces around fields", "  hum , 55 ", true, "hum", 55},
		{"negative exponent", "temp,-1.5e-3", true, "temp", -0.0015},
		{"unrecognized name", "pressure,1000", false, "", 0},
		{"not a number", "temp,notanumber", false, "", 0},
		{"no comma", "temp 21.5", false, "", 0},
		{"extra comma", "temp,21.5,extra", false, "", 0},
		{"empty value", "temp,", false, "", 0},
		{"empty line", "", false, "", 0},
		{"nan rejected", "temp,NaN", false, "", 0},
		{"inf rejected", "temp,+Inf", false, "", 0},
		{"case sensitive", "TEMP,1", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Parse(tt.line, recognized, now)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if p.Name != tt.point {
				t.Errorf("name = %q, want %q", p.Name, tt.point)
			}
			if p.Value != tt.value {
				t.Errorf("value = %v, want %v", p.Value, tt.value)
			}
			if !p.Timestamp.Equal(now.Truncate(time.Millisecond)) {
				t.Errorf("timestamp = %v, want %v", p.Timestamp, now.Truncate(time.Millisecond))
			}
		})
	}
}

func TestParse_NilNameSet(t *testing.T) {
	t.Parallel()

	if _, ok := Parse("temp,1", nil, time.Now()); ok {
		t.Fatal("Parse with nil name set should not accept lines")
	}
}

func TestParse_FollowsNameSetChanges(t *testing.T) {
	t.Parallel()

	recognized := names.NewSet()
	if _, ok := Parse("temp,1", recognized, time.Now()); ok {
		t.Fatal("accepted line before name was added")
	}
	recognized.Add("temp")
	if _, ok := Parse("temp,1", recognized, time.Now()); !ok {
		t.Fatal("rejected line after name was added")
	}
	recognized.Remove("temp")
	if _, ok := Parse("temp,1", recognized, time.Now()); ok {
		t.Fatal("accepted line after name was removed")
	}
}
