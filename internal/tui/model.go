package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	btable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/serialscope/internal/chart"
	"github.com/tinytelemetry/serialscope/internal/duckdb"
	"github.com/tinytelemetry/serialscope/internal/ingest"
	"github.com/tinytelemetry/serialscope/internal/linesource"
	"github.com/tinytelemetry/serialscope/internal/model"
	"github.com/tinytelemetry/serialscope/internal/names"
	"github.com/tinytelemetry/serialscope/internal/patterns"
	"github.com/tinytelemetry/serialscope/internal/table"
)

// Tab identifies a monitor tab.
type Tab int

const (
	TabTable Tab = iota
	TabChart
	TabNames
	TabConsole
	tabCount
)

var tabTitles = [tabCount]string{"Table", "Chart", "Names", "Console"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "?"
	}
	return tabTitles[t]
}

const (
	monitorPageID     = "monitor"
	portsPageID       = "ports"
	storeSubscriberID = "tui"
	defaultTableRows  = 2000
	statusMessageTTL  = 10 * time.Second
)

// Deps wires the monitor to the running pipeline.
type Deps struct {
	Store      *table.Store
	Names      *names.Set
	Controller *ingest.Controller
	Console    *Console
	Exporter   *duckdb.Exporter
	Patterns   *patterns.Miner // optional

	// Open opens the named port. ListPorts enumerates candidates.
	Open      func(port string) (linesource.LineSource, error)
	ListPorts func() ([]string, error)

	// Optional persistence hooks.
	OnNamesChanged func(names []string)
	OnPortSelected func(port string)
}

// Options tunes the monitor.
type Options struct {
	RefreshInterval time.Duration
	WindowDuration  time.Duration
	ScrollStep      time.Duration
	ExportDir       string
	Port            string
	BaudRate        int
	MaxTableRows    int
	Clock           func() time.Time
}

// TableState holds the table tab widget and auto-scroll state.
type TableState struct {
	tbl      btable.Model
	follow   bool // pin the cursor to the newest row
	dirty    bool // store changed since the last rebuild
	headers  []string
	rowCount int
	total    int
	events   chan table.Event
}

// ChartState holds the time window and the last computed view.
type ChartState struct {
	window *chart.Window
	view   chart.View
}

// NamesState holds the names tab cursor and the add-name input.
type NamesState struct {
	nameCursor  int
	nameInput   textinput.Model
	inputActive bool
}

// ConsoleState holds the console viewport.
type ConsoleState struct {
	consoleView    viewport.Model
	consoleVersion uint64
	consoleFollow  bool
}

// ModalStackState holds modals drawn over the monitor.
type ModalStackState struct {
	modalStack []Modal
}

// MonitorModel is the main page: table, chart, names and console tabs.
type MonitorModel struct {
	TableState
	ChartState
	NamesState
	ConsoleState
	ModalStackState

	ctx  context.Context
	deps Deps
	opts Options
	keys KeyMap
	help help.Model

	width     int
	height    int
	activeTab Tab

	status    ingest.Status
	message   string
	messageAt time.Time
	messageOK bool
}

// TickMsg drives the periodic refresh.
type TickMsg time.Time

type storeEventMsg table.Event

type connectRequestMsg struct{ Port string }

type connectResultMsg struct {
	Port string
	Err  error
}

type disconnectResultMsg struct {
	Source string
	Err    error
}

type exportResultMsg struct {
	Path string
	Err  error
}

// NewMonitorModel creates the monitor page. ctx bounds every reader run
// started from the UI.
func NewMonitorModel(ctx context.Context, deps Deps, opts Options) *MonitorModel {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = model.DefaultRefreshInterval
	}
	if opts.BaudRate <= 0 {
		opts.BaudRate = model.DefaultBaudRate
	}
	if opts.MaxTableRows <= 0 {
		opts.MaxTableRows = defaultTableRows
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	input := textinput.New()
	input.Placeholder = "data point name"
	input.CharLimit = 64

	tbl := btable.New(btable.WithFocused(true))
	tbl.SetStyles(tableStyles())

	m := &MonitorModel{
		TableState: TableState{
			tbl:    tbl,
			follow: true,
			dirty:  true,
			events: make(chan table.Event, 256),
		},
		ChartState: ChartState{
			window: chart.NewWindow(chart.Config{
				Duration: opts.WindowDuration,
				Step:     opts.ScrollStep,
				Clock:    opts.Clock,
			}),
		},
		NamesState:   NamesState{nameInput: input},
		ConsoleState: ConsoleState{consoleView: viewport.New(80, 20), consoleFollow: true},
		ctx:          ctx,
		deps:         deps,
		opts:         opts,
		keys:         DefaultKeyMap(),
		help:         help.New(),
	}

	if err := deps.Store.Subscribe(storeSubscriberID, m.events); err != nil {
		m.events = nil
	}
	return m
}

// MonitorPage adapts MonitorModel to the Page interface.
type MonitorPage struct {
	Model *MonitorModel
}

// NewMonitorPage wraps a MonitorModel as a Page.
func NewMonitorPage(m *MonitorModel) *MonitorPage {
	return &MonitorPage{Model: m}
}

func (p *MonitorPage) ID() string { return monitorPageID }

func (p *MonitorPage) Init() tea.Cmd { return p.Model.Init() }

func (p *MonitorPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	return p.Model.update(msg)
}

func (p *MonitorPage) View(width, height int) string {
	p.Model.width = width
	p.Model.height = height
	return p.Model.View()
}

// Init starts the refresh tick and the store event listener.
func (m *MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.waitForEvent())
}

func (m *MonitorModel) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForEvent blocks on the store event channel off the UI loop.
func (m *MonitorModel) waitForEvent() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return storeEventMsg(ev)
	}
}

// PushModal pushes a modal onto the stack. Deduplicates by ID.
func (m *MonitorModel) PushModal(modal Modal) {
	for _, existing := range m.modalStack {
		if existing.ID() == modal.ID() {
			return
		}
	}
	m.modalStack = append(m.modalStack, modal)
}

// PopModal removes the topmost modal from the stack.
func (m *MonitorModel) PopModal() {
	if len(m.modalStack) > 0 {
		m.modalStack = m.modalStack[:len(m.modalStack)-1]
	}
}

// TopModal returns the topmost modal, or nil if the stack is empty.
func (m *MonitorModel) TopModal() Modal {
	if len(m.modalStack) == 0 {
		return nil
	}
	return m.modalStack[len(m.modalStack)-1]
}

func (m *MonitorModel) setMessage(text string, ok bool) {
	m.message = text
	m.messageAt = m.opts.Clock()
	m.messageOK = ok
}

// note shows text in the status line and appends it to the console.
func (m *MonitorModel) note(text string, ok bool) {
	m.setMessage(text, ok)
	if m.deps.Console != nil {
		m.deps.Console.AppendLine(text)
	}
}

// Close unsubscribes from the store.
func (m *MonitorModel) Close() {
	if m.events != nil {
		_ = m.deps.Store.Unsubscribe(storeSubscriberID)
	}
}
