// Package tui is the terminal dashboard behind the watch command.
//
// Terminal focus stands in for page visibility: losing focus suspends the
// poll session and regaining it resumes with an immediate refresh.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/mirrorboard/health"
	"github.com/jpalmerr/mirrorboard/internal/poller"
)

const defaultWidth = 100

// Control is the slice of the poll session the terminal drives.
// *poller.Session implements it.
type Control interface {
	Trigger() bool
	Suspend()
	Resume()
	State() poller.State
}

// ViewMsg delivers a rendered view-model to the program.
type ViewMsg struct {
	View health.ViewModel
	At   time.Time
}

// Config configures a [Model].
type Config struct {
	Title   string
	URL     string
	Control Control
	Views   <-chan health.ViewModel
}

// Model is the bubbletea model of the terminal dashboard.
type Model struct {
	cfg     Config
	view    *health.ViewModel
	updated time.Time
	notice  string
	width   int
	blurred bool
}

// New creates a [Model].
func New(cfg Config) Model {
	if cfg.Title == "" {
		cfg.Title = "Mirrorboard"
	}
	return Model{cfg: cfg}
}

// Run starts the program with focus reporting and the alternate screen,
// and blocks until the user quits.
func Run(m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForView(m.cfg.Views)
}

func waitForView(ch <-chan health.ViewModel) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return ViewMsg{View: v, At: time.Now()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.cfg.Control != nil && !m.cfg.Control.Trigger() {
				m.notice = "refresh already in flight"
			} else {
				m.notice = ""
			}
		}
	case tea.FocusMsg:
		m.blurred = false
		if m.cfg.Control != nil {
			m.cfg.Control.Resume()
		}
	case tea.BlurMsg:
		m.blurred = true
		if m.cfg.Control != nil {
			m.cfg.Control.Suspend()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ViewMsg:
		v := msg.View
		m.view = &v
		m.updated = msg.At
		return m, waitForView(m.cfg.Views)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n\n")

	if m.view == nil {
		b.WriteString(mutedStyle.Render("waiting for first status…"))
		b.WriteString("\n\n")
		b.WriteString(m.footer())
		return b.String()
	}
	v := *m.view

	b.WriteString(headerLine(v.Header))
	b.WriteString("\n")

	panels := []string{
		panel("Requests", v.Requests),
		panel("Safeguards", v.Safeguards),
		panel("Cadence", v.Cadence),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	b.WriteString("\n")
	if v.Env != "" {
		b.WriteString(mutedStyle.Render(v.Env))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(flowLine(v))
	b.WriteString("\n\n")

	if v.Diagnostic != "" {
		b.WriteString(errorStyle.Render(v.Diagnostic))
		b.WriteString("\n")
	} else {
		b.WriteString(moduleGrid(v.Modules, width))
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) titleLine() string {
	title := titleStyle.Render(m.cfg.Title)
	if m.view == nil {
		return title
	}
	label := m.view.Pill.Label
	if label == "" {
		label = "…"
	}
	pill := pillBad.Render(label)
	if m.view.Pill.OK {
		pill = pillOK.Render(label)
	}
	return title + "  " + pill
}

func (m Model) footer() string {
	parts := []string{}
	if m.cfg.URL != "" {
		parts = append(parts, m.cfg.URL)
	}
	if m.cfg.Control != nil {
		parts = append(parts, "session "+m.cfg.Control.State().String())
	}
	if m.blurred {
		parts = append(parts, "paused while unfocused")
	}
	if !m.updated.IsZero() {
		parts = append(parts, "updated "+m.updated.Format("15:04:05"))
	}
	line := mutedStyle.Render(strings.Join(parts, " · "))
	if m.notice != "" {
		line += "  " + errorStyle.Render(m.notice)
	}
	return line + "\n" + mutedStyle.Render("r refresh · q quit")
}

func headerLine(h health.Header) string {
	stat := func(k, v string) string {
		return mutedStyle.Render(k+" ") + headerStyle.Render(v)
	}
	return strings.Join([]string{
		stat("Uptime", h.Uptime),
		stat("Scrolls", h.Scrolls),
		stat("LLM", h.LLM),
		stat("Model", h.Model),
	}, "   ")
}

func panel(title string, fields []health.Field) string {
	lines := []string{headerStyle.Render(title)}
	if len(fields) == 0 {
		lines = append(lines, mutedStyle.Render(health.Placeholder))
	}
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s %s", mutedStyle.Render(f.Key), f.Value))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func flowLine(v health.ViewModel) string {
	nodes := make([]string, 0, len(health.FlowNodes))
	for _, node := range health.FlowNodes {
		nodes = append(nodes, stateStyle(v.FlowState(node)).Render("● "+node))
	}
	return strings.Join(nodes, mutedStyle.Render(" → "))
}

func moduleGrid(modules []health.Module, width int) string {
	const cell = 30
	perRow := max(1, width/cell)

	var rows []string
	var row []string
	for _, mod := range modules {
		tile := lipgloss.NewStyle().Width(cell - 2).Render(
			stateStyle(mod.State).Render("■ "+mod.Name) + " " + mutedStyle.Render(mod.State.Label()),
		)
		row = append(row, tile)
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n") + "\n"
}
