// Package duckdb exports DataStore snapshots through an embedded DuckDB
// engine, producing Parquet files or standalone DuckDB databases.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/serialscope/internal/model"
	"github.com/tinytelemetry/serialscope/internal/table"
)

// ErrUnsupportedFormat is returned for export paths with an unknown extension.
var ErrUnsupportedFormat = errors.New("duckdb: unsupported export format")

// TableName is the table written into exported databases.
const TableName = "readings"

// Format selects the export file type.
type Format int

const (
	FormatParquet Format = iota
	FormatDuckDB
)

func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatDuckDB:
		return "duckdb"
	default:
		return "unknown"
	}
}

// FormatForPath picks a format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet, nil
	case ".duckdb", ".db":
		return FormatDuckDB, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Exporter writes snapshots with a scratch in-memory database per call.
type Exporter struct {
	QueryTimeout time.Duration
}

// NewExporter creates an exporter. An optional queryTimeout bounds each
// export; it defaults to 30s.
func NewExporter(queryTimeout ...time.Duration) *Exporter {
	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}
	return &Exporter{QueryTimeout: qt}
}

// Export writes snap to path in the format implied by its extension.
// The file is written next to path and renamed into place, so a failed
// export never leaves a partial file behind.
func (e *Exporter) Export(ctx context.Context, snap table.Snapshot, path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.QueryTimeout)
	defer cancel()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()
	// A single connection keeps the ATTACH visible to later statements.
	db.SetMaxOpenConns(1)

	if err := load(ctx, db, snap); err != nil {
		return err
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	switch format {
	case FormatParquet:
		err = copyParquet(ctx, db, tmp)
	case FormatDuckDB:
		err = copyDatabase(ctx, db, tmp)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename export: %w", err)
	}
	log.Printf("duckdb: exported %d rows to %s (%s)", len(snap.Rows), path, format)
	return nil
}

// columnNames maps table headers to DuckDB column names. DuckDB matches
// identifiers case-insensitively, so names that collide with an earlier
// column (including the timestamp column) get a numeric suffix.
func columnNames(headers []string) []string {
	cols := []string{model.TimestampColumn}
	taken := map[string]bool{strings.ToLower(model.TimestampColumn): true}
	for _, h := range headers[min(1, len(headers)):] {
		name := h
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		taken[strings.ToLower(name)] = true
		cols = append(cols, name)
	}
	return cols
}

// load creates the readings table from the snapshot headers and inserts
// every row. Absent cells become NULL.
func load(ctx context.Context, db *sql.DB, snap table.Snapshot) error {
	names := columnNames(snap.Headers)
	cols := []string{quoteIdent(names[0]) + " TIMESTAMP"}
	for _, name := range names[1:] {
		cols = append(cols, quoteIdent(name)+" DOUBLE")
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if len(snap.Rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", TableName, marks))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	skipped := 0
	for _, row := range snap.Rows {
		ts, ok := row.Time()
		if !ok {
			skipped++
			continue
		}
		args[0] = wallClock(ts)
		for i := 1; i < len(args); i++ {
			args[i] = nil
			if c := i - 1; c < len(row.Cells) && row.Cells[c].Valid {
				args[i] = row.Cells[c].Value
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Timestamp, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if skipped > 0 {
		log.Printf("duckdb: skipped %d rows with unparsable timestamps", skipped)
	}
	return nil
}

func copyParquet(ctx context.Context, db *sql.DB, dst string) error {
	q := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)", TableName, quoteLiteral(dst))
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("copy to parquet: %w", err)
	}
	return nil
}

func copyDatabase(ctx context.Context, db *sql.DB, dst string) error {
	stmts := []string{
		fmt.Sprintf("ATTACH %s AS export_db", quoteLiteral(dst)),
		fmt.Sprintf("CREATE TABLE export_db.%s AS SELECT * FROM %s", TableName, TableName),
		"DETACH export_db",
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("copy to database: %w", err)
		}
	}
	return nil
}

// wallClock keeps the displayed local time when DuckDB stores the value
// as a zone-less TIMESTAMP.
func wallClock(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
