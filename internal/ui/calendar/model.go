// Package calendar renders the month projection as a six-week grid.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
	"github.com/nhle/taskflow/internal/theme"
	"github.com/nhle/taskflow/internal/ui"
)

// DayMsg is sent when the user picks a day to add the pending quick-add
// text on.
type DayMsg struct {
	Date time.Time
}

// SelectedTaskMsg is sent when the user opens a task from a day.
type SelectedTaskMsg struct {
	TaskID string
}

// MonthMsg asks to show the month Delta months away.
type MonthMsg struct {
	Delta int
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Model is the calendar view.
type Model struct {
	keys   *keys.KeyMap
	cal    projection.Calendar
	cursor int
	width  int
	height int
}

// New creates a calendar view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetCalendar replaces the grid. The cursor keeps its date when that date
// belongs to the new month, otherwise it moves to today or the 1st.
func (m *Model) SetCalendar(cal projection.Calendar) {
	var keep time.Time
	if day, ok := m.Day(); ok {
		keep = day.Date
	}
	m.cal = cal

	m.cursor = -1
	for i, c := range cal.Cells {
		if !keep.IsZero() && !c.OtherMonth && c.Date.Equal(keep) {
			m.cursor = i
			return
		}
	}
	for i, c := range cal.Cells {
		if !c.OtherMonth && c.Today {
			m.cursor = i
			return
		}
	}
	for i, c := range cal.Cells {
		if !c.OtherMonth {
			m.cursor = i
			return
		}
	}
}

// Day returns the cell under the cursor.
func (m Model) Day() (projection.Cell, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cal.Cells) {
		return projection.Cell{}, false
	}
	return m.cal.Cells[m.cursor], true
}

// Update handles cursor movement and day actions.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.cal.Cells) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		return m.step(-1)
	case key.Matches(keyMsg, m.keys.Right):
		return m.step(1)
	case key.Matches(keyMsg, m.keys.Up):
		return m.step(-7)
	case key.Matches(keyMsg, m.keys.Down):
		return m.step(7)
	case key.Matches(keyMsg, m.keys.PrevMonth):
		return m, monthCmd(-1)
	case key.Matches(keyMsg, m.keys.NextMonth):
		return m, monthCmd(1)
	case key.Matches(keyMsg, m.keys.SetDueDate):
		if day, ok := m.Day(); ok {
			return m, func() tea.Msg { return DayMsg{Date: day.Date} }
		}
	case key.Matches(keyMsg, m.keys.Select):
		if day, ok := m.Day(); ok && len(day.Tasks) > 0 {
			id := day.Tasks[0].ID
			return m, func() tea.Msg { return SelectedTaskMsg{TaskID: id} }
		}
	}
	return m, nil
}

// step moves the cursor by delta cells, flipping the month when it walks
// off the grid.
func (m Model) step(delta int) (Model, tea.Cmd) {
	next := m.cursor + delta
	if next < 0 {
		return m, monthCmd(-1)
	}
	if next >= len(m.cal.Cells) {
		return m, monthCmd(1)
	}
	m.cursor = next
	return m, nil
}

func monthCmd(delta int) tea.Cmd {
	return func() tea.Msg { return MonthMsg{Delta: delta} }
}

// View renders the month grid.
func (m Model) View() string {
	if len(m.cal.Cells) == 0 {
		return ""
	}
	cellWidth := m.width/7 - 2
	if cellWidth < 6 {
		cellWidth = 6
	}
	rows := len(m.cal.Cells) / 7
	cellHeight := (m.height - 3) / rows
	if cellHeight < 2 {
		cellHeight = 2
	}

	title := theme.HeaderStyle.Render(m.cal.Title())

	header := make([]string, 7)
	for i, wd := range weekdays {
		header[i] = lipgloss.NewStyle().
			Width(cellWidth + 2).
			Bold(true).
			Foreground(theme.ColorGray).
			Render(wd)
	}

	lines := []string{title, lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for r := 0; r < rows; r++ {
		cells := make([]string, 7)
		for c := 0; c < 7; c++ {
			i := r*7 + c
			cells[c] = m.renderCell(m.cal.Cells[i], i == m.cursor, cellWidth, cellHeight)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCell(cell projection.Cell, selected bool, width, height int) string {
	num := fmt.Sprintf("%2d", cell.Date.Day())
	switch {
	case cell.Today:
		num = theme.TodayCellStyle.Render(num)
	case cell.OtherMonth:
		num = theme.DimmedStyle.Render(num)
	}

	lines := []string{num}
	limit := height - 1
	for i, t := range cell.Tasks {
		if i == limit-1 && len(cell.Tasks) > limit {
			lines = append(lines, theme.HelpStyle.Render(fmt.Sprintf("+%d more", len(cell.Tasks)-i)))
			break
		}
		if i >= limit {
			break
		}
		lines = append(lines, taskLine(t, width))
	}

	style := lipgloss.NewStyle().Width(width).Height(height).Padding(0, 1)
	if selected {
		style = style.Background(theme.ColorSubtle)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func taskLine(t model.Task, width int) string {
	text := ui.Truncate(t.Text, width)
	if t.Status == model.StatusDone {
		return theme.DimmedStyle.Render(text)
	}
	return theme.PriorityStyle(t.Priority).UnsetBold().Render(text)
}

// SetSize updates the calendar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
