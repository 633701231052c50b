package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tinytelemetry/serialscope/internal/linesource"
)

// stdinName selects standard input as the line source.
const stdinName = "-"

// sourceOpener turns a port name, a replay file or "-" into a LineSource.
// Serial ports go through openSerial so tests can substitute it.
type sourceOpener struct {
	baud       int
	openSerial func(linesource.SerialConfig) (*linesource.StreamSource, error)
	openFile   func(path string) (*linesource.StreamSource, error)
	stdin      func() *linesource.StreamSource
}

func newSourceOpener(baud int) sourceOpener {
	return sourceOpener{
		baud:       baud,
		openSerial: linesource.OpenSerial,
		openFile:   linesource.OpenFile,
		stdin:      linesource.NewStdinSource,
	}
}

// Open opens a serial port by name.
func (o sourceOpener) Open(port string) (linesource.LineSource, error) {
	if port == stdinName {
		return o.stdin(), nil
	}
	src, err := o.openSerial(linesource.SerialConfig{Port: port, BaudRate: o.baud})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenReplay opens a recorded file, or stdin for "-".
func (o sourceOpener) OpenReplay(path string) (linesource.LineSource, error) {
	if path == stdinName {
		return o.stdin(), nil
	}
	src, err := o.openFile(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	return src, nil
}

// initial opens the source to attach at start: the replay file wins over
// the port, and neither means no source.
func (o sourceOpener) initial(cfg appConfig) (linesource.LineSource, error) {
	switch {
	case cfg.ReplayFile != "":
		return o.OpenReplay(cfg.ReplayFile)
	case cfg.Port != "":
		return o.Open(cfg.Port)
	}
	return nil, nil
}

// readsStdin reports whether cfg will consume standard input, in which case
// the TUI has to read keys from the terminal device instead.
func readsStdin(cfg appConfig) bool {
	if cfg.ReplayFile != "" {
		return cfg.ReplayFile == stdinName
	}
	return cfg.Port == stdinName
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func printPorts(w io.Writer, list func() ([]string, error)) error {
	ports, err := list()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}
