package linesource

import (
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
)

// DefaultSerialReadTimeout bounds a single serial read so a silent device
// still lets the reader observe cancellation.
const DefaultSerialReadTimeout = time.Second

// SerialConfig describes how to open a serial device.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// OpenSerial opens a serial port with 8N1 framing and wraps it as a
// LineSource.
func OpenSerial(cfg SerialConfig) (*StreamSource, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("linesource: serial port name is empty")
	}
	if cfg.BaudRate <= 0 {
		return nil, fmt.Errorf("linesource: invalid baud rate %d", cfg.BaudRate)
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultSerialReadTimeout
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("linesource: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("linesource: set read timeout on %s: %w", cfg.Port, err)
	}
	return NewStreamSource(cfg.Port, port), nil
}

// ListPorts returns the serial devices currently present, sorted by name.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("linesource: list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
