package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/serialscope/internal/duckdb"
	"github.com/tinytelemetry/serialscope/internal/httpserver"
	"github.com/tinytelemetry/serialscope/internal/ingest"
	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/model"
	"github.com/tinytelemetry/serialscope/internal/names"
	"github.com/tinytelemetry/serialscope/internal/patterns"
	"github.com/tinytelemetry/serialscope/internal/table"
	"github.com/tinytelemetry/serialscope/internal/tui"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownGrace = 10 * time.Second
	// headlessPatternTop caps the unrecognized patterns printed on exit.
	headlessPatternTop = 5
)

// pipeline is everything shared by the TUI, headless mode and the API.
type pipeline struct {
	store      *table.Store
	names      *names.Set
	console    *tui.Console
	controller *ingest.Controller
	exporter   *duckdb.Exporter
	patterns   *patterns.Miner
	prefs      *prefs
	opener     sourceOpener
	// ended receives the source name when a run stops on its own.
	ended chan string
}

func newPipeline(cfg appConfig, lines model.LineSink) *pipeline {
	p := &pipeline{
		store:    table.NewStore(),
		console:  tui.NewConsole(cfg.MaxConsoleLines),
		exporter: duckdb.NewExporter(cfg.ExportTimeout),
		patterns: patterns.NewMiner(),
		prefs:    loadPrefs(cfg.SettingsPath),
		opener:   newSourceOpener(cfg.Baud),
		ended:    make(chan string, 1),
	}

	saved := p.prefs.snapshot()
	initial := make([]string, 0, len(cfg.Names)+len(saved.Names))
	for _, n := range slices.Concat(cfg.Names, saved.Names) {
		initial = append(initial, names.Sanitize(n))
	}
	p.names = names.NewSet(initial...)
	p.prefs.setBaud(cfg.Baud)

	if lines == nil {
		lines = p.console
	}
	p.controller = ingest.NewController(ingest.ControllerConfig{
		Names:   p.names,
		Sink:    p.store,
		Console: lines,
		Dropped: p.patterns,
		OnEnd: func(source string, err error) {
			msg := fmt.Sprintf("%s: %v", source, err)
			if errors.Is(err, io.EOF) {
				msg = fmt.Sprintf("%s: end of stream", source)
			}
			log.Printf("ingest: %s", msg)
			lines.AppendLine(msg)
			select {
			case p.ended <- source:
			default:
			}
		},
	})
	return p
}

// run wires the pipeline and blocks until the TUI quits or, in headless
// mode, a signal arrives or the source ends.
func run(cfg appConfig) error {
	logPath, cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	if cfg.Debug && logPath != "" {
		f, err := tea.LogToFile(logPath, "serialscope")
		if err == nil {
			defer f.Close()
		}
	}

	var lines model.LineSink
	if cfg.Headless {
		lines = model.LineSinkFunc(func(line string) { fmt.Println(line) })
	}
	p := newPipeline(cfg, lines)
	defer p.prefs.save()

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(httpserver.Config{
			Addr:           cfg.APIAddr,
			Table:          p.store,
			Names:          p.names,
			Reader:         p.controller,
			Events:         p.store,
			Patterns:       p.patterns,
			WindowDuration: cfg.WindowDuration,
			OnNamesChanged: p.prefs.setNames,
		})
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		if cfg.Headless {
			fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		}
		cancel()

		deadline := time.NewTimer(shutdownGrace)
		defer deadline.Stop()
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nForce shutdown.")
		case <-deadline.C:
			fmt.Fprintln(os.Stderr, "Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	if cfg.Headless {
		return runHeadless(ctx, cancel, cfg, p)
	}
	return runTUI(ctx, cancel, cfg, p)
}

func runHeadless(ctx context.Context, cancel context.CancelFunc, cfg appConfig, p *pipeline) error {
	src, err := p.opener.initial(cfg)
	if err != nil {
		return err
	}
	if src == nil {
		if !stdinPiped() {
			return errors.New("headless mode needs --port, --replay or piped input")
		}
		src = linesource.NewStdinSource()
	}
	printStartupBanner(cfg, src.Name(), p.names.List())

	if err := p.controller.Connect(ctx, src); err != nil {
		return err
	}
	log.Printf("serialscope: headless run on %s", src.Name())
	if cfg.ReplayFile == "" {
		p.prefs.setPort(src.Name())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case name := <-p.ended:
			log.Printf("serialscope: %s ended, stopping", name)
			cancel()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Printf("serialscope: errgroup exited with error: %v", err)
	}

	if err := p.controller.Disconnect(); err != nil && !errors.Is(err, ingest.ErrNotConnected) {
		log.Printf("serialscope: disconnect: %v", err)
	}
	st := p.controller.Status().Stats
	fmt.Printf("%d lines, %d points, %d rows\n", st.Lines, st.Points, p.store.RowCount())
	for _, pat := range p.patterns.Top(headlessPatternTop) {
		fmt.Printf("  %5d  %s\n", pat.Count, pat.Template)
	}
	return nil
}

func runTUI(ctx context.Context, cancel context.CancelFunc, cfg appConfig, p *pipeline) error {
	lastPort := cfg.Port
	if lastPort == "" {
		lastPort = p.prefs.snapshot().Port
	}

	monitor := tui.NewMonitorModel(ctx, tui.Deps{
		Store:          p.store,
		Names:          p.names,
		Controller:     p.controller,
		Console:        p.console,
		Exporter:       p.exporter,
		Patterns:       p.patterns,
		Open:           p.opener.Open,
		ListPorts:      linesource.ListPorts,
		OnNamesChanged: p.prefs.setNames,
		OnPortSelected: p.prefs.setPort,
	}, tui.Options{
		RefreshInterval: cfg.RefreshInterval,
		WindowDuration:  cfg.WindowDuration,
		ScrollStep:      cfg.ScrollStep,
		ExportDir:       cfg.ExportDir,
		Port:            lastPort,
		BaudRate:        cfg.Baud,
	})
	defer monitor.Close()

	app := tui.NewApp(
		tui.NewMonitorPage(monitor),
		tui.NewPortsPage(linesource.ListPorts, lastPort),
	)

	if src, err := p.opener.initial(cfg); err != nil {
		p.console.AppendLine(err.Error())
		log.Printf("serialscope: %v", err)
	} else if src != nil {
		if err := p.controller.Connect(ctx, src); err != nil {
			p.console.AppendLine(err.Error())
			log.Printf("serialscope: %v", err)
		} else {
			p.console.AppendLine(fmt.Sprintf("Connected to %s at %d baud.", src.Name(), cfg.Baud))
		}
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if readsStdin(cfg) {
		opts = append(opts, tea.WithInputTTY())
	}
	prog := tea.NewProgram(app, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if _, err := prog.Run(); err != nil {
			if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
				return fmt.Errorf("TUI requires a real terminal")
			}
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		prog.Quit()
		return nil
	})
	runErr := g.Wait()

	if err := p.controller.Disconnect(); err != nil && !errors.Is(err, ingest.ErrNotConnected) {
		log.Printf("serialscope: disconnect: %v", err)
	}
	return runErr
}

// configureRuntimeLogger sends the standard logger to the state directory so
// it never draws over the TUI. It returns the log path, empty on fallback.
func configureRuntimeLogger() (string, func()) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return "", func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "serialscope")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return "", func() {}
	}

	logPath := filepath.Join(logDir, "serialscope.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return "", func() {}
	}

	log.SetOutput(f)
	return logPath, func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, source string, recognized []string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	row := func(mark, label, value string) string {
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}

	lines := []string{
		"",
		cyan.Bold(true).Render("    serialscope"),
		"    " + dim.Render("v"+version),
		"",
		bold.Render("    Input"),
		"",
		row(check, "Source", cyan.Render(source)),
		row(check, "Baud", dim.Render(fmt.Sprint(cfg.Baud))),
	}
	if len(recognized) > 0 {
		lines = append(lines, row(check, "Names", dim.Render(strings.Join(recognized, ", "))))
	} else {
		lines = append(lines, row(dot, "Names", dim.Render("none (no points will be recorded)")))
	}

	lines = append(lines, "", bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(check, "HTTP API", cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(dot, "HTTP API", dim.Render("disabled")))
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, row(check, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(dot, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")
	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
