// Package board renders the kanban projection and turns card moves into
// placement requests.
package board

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

// MoveMsg asks to place TaskID at Index of the Status column, where Index
// counts the column without the moved task.
type MoveMsg struct {
	TaskID string
	Status model.Status
	Index  int
}

// SelectedTaskMsg is sent when the user opens a card.
type SelectedTaskMsg struct {
	TaskID string
}

// cardHeight is the number of rows a card occupies, including its gap.
const cardHeight = 3

// Model is the kanban board view.
type Model struct {
	keys   *keys.KeyMap
	board  projection.Board
	now    time.Time
	col    int
	row    int
	follow string
	width  int
	height int
}

// New creates a board view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		board:  projection.BuildBoard(nil),
		width:  width,
		height: height,
	}
}

// SetBoard replaces the rendered projection. The cursor stays on the
// same card when it still exists.
func (m *Model) SetBoard(b projection.Board, now time.Time) {
	current, hadCurrent := m.Selected()
	m.board = b
	m.now = now

	target := m.follow
	if target == "" && hadCurrent {
		target = current.ID
	}
	if target != "" {
		for c, column := range b.Columns {
			for r, card := range column.Cards {
				if card.Task.ID == target {
					m.col, m.row = c, r
					m.follow = ""
					m.clamp()
					return
				}
			}
		}
	}
	m.clamp()
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	if m.col < 0 || m.col >= len(m.board.Columns) {
		return model.Task{}, false
	}
	cards := m.board.Columns[m.col].Cards
	if m.row < 0 || m.row >= len(cards) {
		return model.Task{}, false
	}
	return cards[m.row].Task, true
}

// Update handles navigation and move keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.row--
	case key.Matches(keyMsg, m.keys.Down):
		m.row++
	case key.Matches(keyMsg, m.keys.Left):
		m.col--
	case key.Matches(keyMsg, m.keys.Right):
		m.col++
	case key.Matches(keyMsg, m.keys.Select):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return SelectedTaskMsg{TaskID: t.ID} }
		}
	case key.Matches(keyMsg, m.keys.MoveUp):
		return m.moveWithin(-1)
	case key.Matches(keyMsg, m.keys.MoveDown):
		return m.moveWithin(1)
	case key.Matches(keyMsg, m.keys.MoveLeft):
		return m.moveAcross(-1)
	case key.Matches(keyMsg, m.keys.MoveRight):
		return m.moveAcross(1)
	}
	m.clamp()
	return m, nil
}

// moveWithin shifts the selected card by delta inside its column.
func (m Model) moveWithin(delta int) (Model, tea.Cmd) {
	t, ok := m.Selected()
	if !ok {
		return m, nil
	}
	index := m.row + delta
	if index < 0 || index >= len(m.board.Columns[m.col].Cards) {
		return m, nil
	}
	m.follow = t.ID
	m.row = index
	return m, func() tea.Msg {
		return MoveMsg{TaskID: t.ID, Status: t.Status, Index: index}
	}
}

// moveAcross sends the selected card to the neighbouring column, keeping
// its row where possible.
func (m Model) moveAcross(delta int) (Model, tea.Cmd) {
	t, ok := m.Selected()
	if !ok {
		return m, nil
	}
	target := m.col + delta
	if target < 0 || target >= len(m.board.Columns) {
		return m, nil
	}
	column := m.board.Columns[target]
	index := m.row
	if index > len(column.Cards) {
		index = len(column.Cards)
	}
	m.follow = t.ID
	m.col, m.row = target, index
	return m, func() tea.Msg {
		return MoveMsg{TaskID: t.ID, Status: column.Status, Index: index}
	}
}

func (m *Model) clamp() {
	if n := len(m.board.Columns); m.col >= n {
		m.col = n - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	if m.follow != "" {
		return
	}
	n := 0
	if m.col < len(m.board.Columns) {
		n = len(m.board.Columns[m.col].Cards)
	}
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// View renders the columns side by side.
func (m Model) View() string {
	if len(m.board.Columns) == 0 {
		return ""
	}
	colWidth := m.width/len(m.board.Columns) - 2
	if colWidth < 12 {
		colWidth = 12
	}

	rendered := make([]string, len(m.board.Columns))
	for i, column := range m.board.Columns {
		rendered[i] = m.renderColumn(i, column, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(index int, column projection.Column, width int) string {
	inner := width - 2
	title := theme.StatusStyle(column.Status).
		Render(fmt.Sprintf("%s (%d)", column.Status.Label(), len(column.Cards)))

	visible := (m.height - 4) / cardHeight
	if visible < 1 {
		visible = 1
	}
	offset := 0
	if index == m.col && m.row >= visible {
		offset = m.row - visible + 1
	}

	lines := []string{title, ""}
	if len(column.Cards) == 0 {
		lines = append(lines, theme.HelpStyle.Render("No tasks"))
	}
	for r := offset; r < len(column.Cards) && r < offset+visible; r++ {
		card := column.Cards[r]
		lines = append(lines, m.renderCard(card, inner, index == m.col && r == m.row)...)
	}

	style := theme.ColumnStyle
	if index == m.col {
		style = theme.ActiveColumnStyle
	}
	return style.Width(width).Height(m.height - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(card projection.Card, width int, selected bool) []string {
	t := card.Task
	head := ui.Join(ui.PriorityBadge(t.Priority), ui.Truncate(t.Text, width-8), ui.ProgressBadge(card.Progress))
	meta := ui.Join(ui.DueBadge(t, m.now), ui.Tags(t.Tags))

	if selected {
		head = theme.SelectedItemStyle.Render(head)
	} else {
		head = theme.ListItemStyle.Render(head)
	}
	return []string{head, theme.ListItemStyle.Render(meta), ""}
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
