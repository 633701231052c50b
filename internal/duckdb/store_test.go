package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tinytelemetry/serialscope/internal/table"
)

func testSnapshot() table.Snapshot {
	s := table.NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	s.AddPoint(base, "temp", 21.5)
	s.AddPoint(base.Add(time.Second), "temp", 22)
	s.AddPoint(base.Add(time.Second), "hum", 40)
	return s.Snapshot()
}

func openScratch(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{path: "out.parquet", want: FormatParquet},
		{path: "OUT.PARQUET", want: FormatParquet},
		{path: "data/out.duckdb", want: FormatDuckDB},
		{path: "out.db", want: FormatDuckDB},
		{path: "out.csv", err: true},
		{path: "out", err: true},
	}
	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if tt.err {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("FormatForPath(%q) err = %v, want ErrUnsupportedFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatForPath(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
		}
	}
}

func TestExport_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "readings.parquet")
	if err := NewExporter().Export(context.Background(), testSnapshot(), path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	db := openScratch(t)
	var rows int
	var temp float64
	var hum sql.NullFloat64
	q := "SELECT count(*), sum(temp), max(hum) FROM read_parquet(" + quoteLiteral(path) + ")"
	if err := db.QueryRow(q).Scan(&rows, &temp, &hum); err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if rows != 2 || temp != 43.5 || !hum.Valid || hum.Float64 != 40 {
		t.Fatalf("got rows=%d temp=%v hum=%v", rows, temp, hum)
	}
}

func TestExport_DuckDBFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.duckdb")
	if err := NewExporter().Export(context.Background(), testSnapshot(), path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer db.Close()

	var nulls int
	if err := db.QueryRow("SELECT count(*) FROM readings WHERE hum IS NULL").Scan(&nulls); err != nil {
		t.Fatalf("query export: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("rows with absent hum = %d, want 1", nulls)
	}

	var ts time.Time
	if err := db.QueryRow(`SELECT min("Timestamp") FROM readings`).Scan(&ts); err != nil {
		t.Fatalf("query timestamp: %v", err)
	}
	if ts.Hour() != 0 || ts.Minute() != 0 || ts.Year() != 2024 {
		t.Fatalf("first timestamp = %v, want wall clock 2024-01-01 00:00", ts)
	}
}

func TestExport_EmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	if err := NewExporter().Export(context.Background(), table.NewStore().Snapshot(), path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat export: %v", err)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "readings.xlsx")
	err := NewExporter().Export(context.Background(), testSnapshot(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file created for unsupported format")
	}
}

func TestExport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "readings.parquet")
	if err := NewExporter().Export(ctx, testSnapshot(), path); err == nil {
		t.Fatal("Export with cancelled context succeeded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("partial export left behind")
	}
}

func TestColumnNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		headers []string
		want    []string
	}{
		{headers: nil, want: []string{"Timestamp"}},
		{headers: []string{"Timestamp", "temp", "hum"}, want: []string{"Timestamp", "temp", "hum"}},
		{headers: []string{"Timestamp", "temp", "TEMP"}, want: []string{"Timestamp", "temp", "TEMP_2"}},
		{headers: []string{"Timestamp", "timestamp"}, want: []string{"Timestamp", "timestamp_2"}},
		{headers: []string{"Timestamp", "temp", "temp_2", "Temp"}, want: []string{"Timestamp", "temp", "temp_2", "Temp_3"}},
	}
	for _, tt := range tests {
		if got := columnNames(tt.headers); !slices.Equal(got, tt.want) {
			t.Errorf("columnNames(%q) = %q, want %q", tt.headers, got, tt.want)
		}
	}
}

func TestExport_CaseInsensitiveHeaderCollisions(t *testing.T) {
	s := table.NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	s.AddPoint(base, "temp", 1)
	s.AddPoint(base, "TEMP", 2)
	s.AddPoint(base, "timestamp", 3)
	snap := s.Snapshot()

	dir := t.TempDir()
	for _, name := range []string{"collide.parquet", "collide.duckdb"} {
		if err := NewExporter().Export(context.Background(), snap, filepath.Join(dir, name)); err != nil {
			t.Fatalf("Export %s: %v", name, err)
		}
	}

	db := openScratch(t)
	var lower, upper, ts float64
	q := `SELECT "temp", "TEMP_2", "timestamp_2" FROM read_parquet(` + quoteLiteral(filepath.Join(dir, "collide.parquet")) + ")"
	if err := db.QueryRow(q).Scan(&lower, &upper, &ts); err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if lower != 1 || upper != 2 || ts != 3 {
		t.Fatalf("got temp=%v TEMP_2=%v timestamp_2=%v", lower, upper, ts)
	}
}
