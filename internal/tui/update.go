package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/serialscope/internal/names"
)

// Update implements tea.Model so the monitor can also run without App.
func (m *MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd, _ := m.update(msg)
	return m, cmd
}

func (m *MonitorModel) update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return nil, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case TickMsg:
		m.refresh()
		return m.tickCmd(), nil

	case storeEventMsg:
		m.dirty = true
		return m.waitForEvent(), nil

	case connectRequestMsg:
		m.setMessage(fmt.Sprintf("Connecting to %s...", msg.Port), true)
		return m.connectCmd(msg.Port), nil

	case connectResultMsg:
		if msg.Err != nil {
			m.note(fmt.Sprintf("Failed to connect to %s: %v", msg.Port, msg.Err), false)
			return nil, nil
		}
		m.note(fmt.Sprintf("Connected to %s at %d baud.", msg.Port, m.opts.BaudRate), true)
		m.status = m.deps.Controller.Status()
		if m.deps.OnPortSelected != nil {
			m.deps.OnPortSelected(msg.Port)
		}
		return nil, nil

	case disconnectResultMsg:
		if msg.Err != nil {
			m.setMessage("Not connected", false)
			return nil, nil
		}
		m.note(fmt.Sprintf("Disconnected from %s.", msg.Source), true)
		m.status = m.deps.Controller.Status()
		return nil, nil

	case exportResultMsg:
		if msg.Err != nil {
			m.note(fmt.Sprintf("Export failed: %v", msg.Err), false)
			return nil, nil
		}
		m.note(fmt.Sprintf("Exported to %s", msg.Path), true)
		return nil, nil
	}
	return nil, nil
}

// handleKeyPress routes keys: modal first, then the name input, then
// global bindings, then the active tab.
func (m *MonitorModel) handleKeyPress(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return tea.Quit, nil
	}

	if modal := m.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			m.PopModal()
		}
		return cmd, nil
	}

	if m.inputActive {
		return m.handleNameInput(msg), nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, nil
	case key.Matches(msg, m.keys.Help):
		m.PushModal(newHelpModal(m.keys))
		return nil, nil
	case key.Matches(msg, m.keys.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
		return nil, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		return nil, nil
	case key.Matches(msg, m.keys.TabTable):
		m.activeTab = TabTable
		return nil, nil
	case key.Matches(msg, m.keys.TabChart):
		m.activeTab = TabChart
		return nil, nil
	case key.Matches(msg, m.keys.TabNames):
		m.activeTab = TabNames
		return nil, nil
	case key.Matches(msg, m.keys.TabConsole):
		m.activeTab = TabConsole
		return nil, nil
	case key.Matches(msg, m.keys.Connect):
		return nil, &PageNav{PageID: portsPageID}
	case key.Matches(msg, m.keys.Disconnect):
		return m.disconnectCmd(), nil
	case key.Matches(msg, m.keys.Export):
		m.PushModal(newExportModal(m.defaultExportPath(), m.exportCmd))
		return nil, nil
	case key.Matches(msg, m.keys.ClearTable):
		m.deps.Store.Clear()
		m.note("Table cleared.", true)
		return nil, nil
	}

	switch m.activeTab {
	case TabTable:
		return m.handleTableKey(msg), nil
	case TabChart:
		m.handleChartKey(msg)
	case TabNames:
		return m.handleNamesKey(msg), nil
	case TabConsole:
		return m.handleConsoleKey(msg), nil
	}
	return nil, nil
}

func (m *MonitorModel) handleChartKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.ScrollBack):
		m.window.ScrollBack()
	case key.Matches(msg, m.keys.ScrollForward):
		m.window.ScrollForward()
	case key.Matches(msg, m.keys.GoLive):
		m.window.GoLive()
	default:
		return
	}
	m.view = m.window.Refresh(m.deps.Store.Snapshot())
}

func (m *MonitorModel) handleNamesKey(msg tea.KeyMsg) tea.Cmd {
	list := m.deps.Names.List()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.nameCursor > 0 {
			m.nameCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.nameCursor < len(list)-1 {
			m.nameCursor++
		}
	case key.Matches(msg, m.keys.AddName):
		m.inputActive = true
		m.nameInput.Reset()
		return m.nameInput.Focus()
	case key.Matches(msg, m.keys.RemoveName):
		if m.nameCursor < len(list) {
			name := list[m.nameCursor]
			if m.deps.Names.Remove(name) {
				m.setMessage(fmt.Sprintf("Stopped tracking %s", name), true)
				m.namesChanged()
			}
		}
	case key.Matches(msg, m.keys.ClearNames):
		if len(list) > 0 {
			m.deps.Names.Clear()
			m.setMessage("Cleared all tracked names", true)
			m.namesChanged()
		}
	}
	m.clampNameCursor()
	return nil
}

func (m *MonitorModel) handleNameInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.inputActive = false
		m.nameInput.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		m.inputActive = false
		m.nameInput.Blur()
		m.addName(m.nameInput.Value())
		return nil
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return cmd
}

func (m *MonitorModel) addName(raw string) {
	name := names.Sanitize(raw)
	switch {
	case name == "":
		m.setMessage(fmt.Sprintf("Invalid name %q", strings.TrimSpace(raw)), false)
	case !m.deps.Names.Add(name):
		m.setMessage(fmt.Sprintf("%s is already tracked", name), false)
	default:
		m.setMessage(fmt.Sprintf("Tracking %s", name), true)
		m.nameCursor = m.deps.Names.Len() - 1
		m.namesChanged()
	}
}

func (m *MonitorModel) namesChanged() {
	if m.deps.OnNamesChanged != nil {
		m.deps.OnNamesChanged(m.deps.Names.List())
	}
}

func (m *MonitorModel) clampNameCursor() {
	n := m.deps.Names.Len()
	if m.nameCursor >= n {
		m.nameCursor = max(0, n-1)
	}
}

func (m *MonitorModel) handleConsoleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Home):
		m.consoleView.GotoTop()
	case key.Matches(msg, m.keys.End):
		m.consoleView.GotoBottom()
	default:
		m.consoleView, cmd = m.consoleView.Update(msg)
	}
	m.consoleFollow = m.consoleView.AtBottom()
	return cmd
}

// refresh runs on every tick. The chart window advances even when no
// new data arrived.
func (m *MonitorModel) refresh() {
	if m.deps.Controller != nil {
		m.status = m.deps.Controller.Status()
	}

	snap := m.deps.Store.Snapshot()
	if m.dirty || len(snap.Rows) != m.total || len(snap.Headers) != len(m.headers) {
		m.syncTable(snap)
	}
	m.view = m.window.Refresh(snap)

	if m.deps.Console != nil {
		if v := m.deps.Console.Version(); v != m.consoleVersion {
			lines, ver := m.deps.Console.Lines()
			m.consoleVersion = ver
			m.consoleView.SetContent(strings.Join(lines, "\n"))
			if m.consoleFollow {
				m.consoleView.GotoBottom()
			}
		}
	}
}
