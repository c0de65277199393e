package tasklist

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
	"github.com/nhle/taskflow/internal/theme"
)

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct {
	TaskID string
}

// Model is the list view: the filtered, sorted list projection.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	filter projection.ListFilter
	width  int
	height int
}

// New creates a new task list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, TaskDelegate{}, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetTasks replaces the rows with the list projection. The cursor stays
// on the same task when it is still listed.
func (m *Model) SetTasks(tasks []model.Task, filter projection.ListFilter, now time.Time) tea.Cmd {
	current, hadCurrent := m.Selected()
	m.filter = filter
	m.list.Title = "Tasks" + filterLabel(filter)

	items := make([]list.Item, len(tasks))
	selected := -1
	for i, task := range tasks {
		items[i] = TaskItem{Task: task, Now: now}
		if hadCurrent && task.ID == current.ID {
			selected = i
		}
	}
	cmd := m.list.SetItems(items)
	if selected >= 0 {
		m.list.Select(selected)
	}
	return cmd
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Select) {
		item, ok := m.list.SelectedItem().(TaskItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: item.Task.ID}
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no tasks are listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter != (projection.ListFilter{}) {
		return style.Render("No matching tasks.\nPress f or p to change the filters.")
	}
	return style.Render("No tasks yet.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

func filterLabel(f projection.ListFilter) string {
	label := ""
	if f.Status != "" {
		label += " · " + f.Status.Label()
	}
	if f.Priority != "" {
		label += " · " + string(f.Priority)
	}
	return label
}
