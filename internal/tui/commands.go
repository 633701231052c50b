package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/serialscope/internal/chart"
	"github.com/tinytelemetry/serialscope/internal/duckdb"
)

var errUnknownExport = errors.New("unknown export type (use .csv, .parquet, .duckdb or .png)")

// connectCmd opens the port and attaches it off the UI loop.
func (m *MonitorModel) connectCmd(port string) tea.Cmd {
	ctx, deps := m.ctx, m.deps
	return func() tea.Msg {
		if deps.Open == nil || deps.Controller == nil {
			return connectResultMsg{Port: port, Err: errors.New("no port opener configured")}
		}
		src, err := deps.Open(port)
		if err != nil {
			return connectResultMsg{Port: port, Err: err}
		}
		if err := deps.Controller.Connect(ctx, src); err != nil {
			return connectResultMsg{Port: port, Err: err}
		}
		return connectResultMsg{Port: port}
	}
}

func (m *MonitorModel) disconnectCmd() tea.Cmd {
	ctrl := m.deps.Controller
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		source := ctrl.Status().Source
		return disconnectResultMsg{Source: source, Err: ctrl.Disconnect()}
	}
}

func (m *MonitorModel) defaultExportPath() string {
	name := "serialscope-" + m.opts.Clock().Format("20060102-150405") + ".csv"
	return filepath.Join(m.opts.ExportDir, name)
}

// exportCmd captures the table snapshot and chart view now and writes
// them off the UI loop.
func (m *MonitorModel) exportCmd(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	snap := m.deps.Store.Snapshot()
	view := m.view
	ctx, exporter := m.ctx, m.deps.Exporter

	return func() tea.Msg {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			err = writeFileAtomic(path, snap.WriteCSV)
		case ".png":
			err = writeFileAtomic(path, func(w io.Writer) error {
				return chart.RenderPNG(view, w, chart.PNGConfig{Title: "serialscope " + view.End.Format(time.DateTime)})
			})
		case ".parquet", ".duckdb", ".db":
			if exporter == nil {
				exporter = duckdb.NewExporter()
			}
			err = exporter.Export(ctx, snap, path)
		default:
			err = errUnknownExport
		}
		return exportResultMsg{Path: path, Err: err}
	}
}

// writeFileAtomic writes through a temp file that is renamed into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
