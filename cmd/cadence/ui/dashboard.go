package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"cadence/internal/events"
)

// maxEventLines bounds the activity log under the status view.
const maxEventLines = 8

type eventMsg events.Event

// closedMsg reports that the event channel closed.
type closedMsg struct{}

// DashboardModel shows live session status and recent activity.
type DashboardModel struct {
	viewport viewport.Model
	source   Source
	events   <-chan events.Event
	styles   Styles
	activity []string
	err      error
	width    int
	height   int
}

// NewDashboard creates a dashboard reading from src and refreshing on every
// event received from ch.
func NewDashboard(src Source, ch <-chan events.Event, styles Styles) DashboardModel {
	m := DashboardModel{
		viewport: viewport.New(80, 20),
		source:   src,
		events:   ch,
		styles:   styles,
	}
	m.refresh()
	return m
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init starts listening for events.
func (m DashboardModel) Init() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return waitForEvent(m.events)
}

// Update handles messages.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2 // footer
		m.refresh()
		return m, nil

	case eventMsg:
		m.activity = append(m.activity, fmt.Sprintf("%s  %s", msg.Kind, msg.Summary))
		if len(m.activity) > maxEventLines {
			m.activity = m.activity[len(m.activity)-maxEventLines:]
		}
		m.refresh()
		return m, waitForEvent(m.events)

	case closedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh reloads status into the viewport.
func (m *DashboardModel) refresh() {
	v, err := LoadStatus(m.source)
	if err != nil {
		m.err = err
		m.viewport.SetContent(m.styles.Error.Render("Status unavailable: " + err.Error()))
		return
	}
	m.err = nil

	var sb strings.Builder
	sb.WriteString(RenderStatus(m.styles, v))
	if len(m.activity) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Title.Render("Activity"))
		sb.WriteString("\n")
		for _, line := range m.activity {
			sb.WriteString(m.styles.Muted.Render("  "+line) + "\n")
		}
	}
	m.viewport.SetContent(sb.String())
}

// Activity returns the recent event lines, oldest first.
func (m DashboardModel) Activity() []string {
	return append([]string(nil), m.activity...)
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	footer := m.styles.Footer.Render("r refresh • ↑/↓ scroll • q quit")
	return m.viewport.View() + "\n" + footer
}
