package model

import "time"

// Shared defaults used by the CLI, the TUI and the HTTP API.
const (
	DefaultBaudRate        = 115200
	DefaultRefreshInterval = 500 * time.Millisecond
	DefaultWindowDuration  = 30 * time.Second
	DefaultScrollStep      = 5 * time.Second
	DefaultConsoleLines    = 500
)

// TimestampColumn is the fixed name of column 0 in every table.
const TimestampColumn = "Timestamp"

// TimestampLayout formats row keys with millisecond resolution.
const TimestampLayout = "2006-01-02 15:04:05.000"
