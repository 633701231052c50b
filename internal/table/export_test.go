package table

import (
	"bytes"
	"testing"
)

func TestWriteCSV_SingleRow(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddPoint(ts(0, 0), "temp", 21.5)

	var buf bytes.Buffer
	if err := s.Snapshot().WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Timestamp,temp\n2024-01-01 00:00:00.000,21.5\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteCSV_AbsentValuesAreEmpty(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddPoint(ts(0, 0), "temp", 21.5)
	s.AddPoint(ts(1, 0), "hum", 55)

	var buf bytes.Buffer
	if err := s.Snapshot().WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Timestamp,temp,hum\n" +
		"2024-01-01 00:00:00.000,21.5,\n" +
		"2024-01-01 00:00:01.000,,55\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}
}
