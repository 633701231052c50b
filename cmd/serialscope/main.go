package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tinytelemetry/serialscope/internal/linesource"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var (
		configPath  string
		port        string
		replay      string
		showVersion bool
		listPorts   bool
		headless    bool
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/serialscope/config.yml)")
	flag.StringVar(&port, "port", "", "serial port to connect to on start")
	flag.StringVar(&replay, "replay", "", "replay a recorded file instead of a serial port (\"-\" reads stdin)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&listPorts, "list-ports", false, "list serial ports and exit")
	flag.BoolVar(&headless, "headless", false, "run without the TUI")
	flag.Parse()

	if showVersion {
		fmt.Printf("serialscope - Serial Data Monitor\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	if listPorts {
		if err := printPorts(os.Stdout, linesource.ListPorts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if port != "" {
		cfg.Port = port
	}
	if replay != "" {
		cfg.ReplayFile = replay
	}
	if headless {
		cfg.Headless = true
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
