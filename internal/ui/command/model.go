package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/theme"
)

// CommandMsg is emitted when the user executes a command. It carries the
// command's id.
type CommandMsg string

// CloseMsg is emitted when the user dismisses the palette.
type CloseMsg struct{}

// Item is one entry in the palette's result list.
type Item struct {
	ID          string
	Title       string
	Description string
	Shortcut    string
}

// Model is the command palette view: a query input over a filtered list
// of commands.
type Model struct {
	input   textinput.Model
	filter  func(string) []Item
	results []Item
	cursor  int
	width   int
	height  int
}

// New creates a new command palette model. filter returns the commands
// matching a query, best match first.
func New(filter func(string) []Item, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	m := Model{
		input:  ti,
		filter: filter,
		width:  width,
		height: height,
	}
	m.refresh()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Open resets the query and focuses the input.
func (m *Model) Open() tea.Cmd {
	m.input.Reset()
	m.refresh()
	return m.input.Focus()
}

// Results returns the commands matching the current query.
func (m Model) Results() []Item {
	return m.results
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			return m, func() tea.Msg { return CloseMsg{} }
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if m.cursor >= len(m.results) {
				return m, nil
			}
			id := m.results[m.cursor].ID
			m.input.Reset()
			m.input.Blur()
			m.refresh()
			return m, func() tea.Msg { return CommandMsg(id) }
		}
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != prev {
		m.refresh()
	}
	return m, cmd
}

func (m *Model) refresh() {
	if m.filter == nil {
		m.results = nil
	} else {
		m.results = m.filter(strings.TrimSpace(m.input.Value()))
	}
	m.cursor = 0
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	rows := []string{titleStyle.Render("Command Palette"), m.input.View(), ""}
	if len(m.results) == 0 {
		rows = append(rows, theme.HelpStyle.Render("No matching commands"))
	}
	for i, it := range m.results {
		line := it.Title
		if it.Shortcut != "" {
			line += "  " + theme.DimmedStyle.Render(it.Shortcut)
		}
		if it.Description != "" {
			line += "  " + theme.HelpStyle.Render(it.Description)
		}
		if i == m.cursor {
			rows = append(rows, theme.SelectedItemStyle.Render(line))
		} else {
			rows = append(rows, theme.ListItemStyle.Render(line))
		}
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
