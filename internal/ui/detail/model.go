package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
	"github.com/nhle/taskflow/internal/ui"
)

// BackMsg signals the parent to close the detail view.
type BackMsg struct{}

// Action names carried by ActionMsg.
const (
	ActionEdit          = "edit"
	ActionDelete        = "delete"
	ActionAddSubtask    = "add-subtask"
	ActionToggleSubtask = "toggle-subtask"
	ActionRenameSubtask = "rename-subtask"
	ActionDeleteSubtask = "delete-subtask"
)

// ActionMsg signals the parent to execute an action on the task or one
// of its subtasks.
type ActionMsg struct {
	Action string
	TaskID string
	Done   bool
	Text   string
}

// Model is the task detail view: the task's fields and its subtasks, with
// a cursor over the subtasks.
type Model struct {
	task     *model.Task
	subtasks []model.Task
	now      time.Time
	cursor   int
	renaming bool
	input    textinput.Model
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Prompt = "rename: "
	ti.CharLimit = 200

	return Model{
		viewport: vp,
		input:    ti,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// SetTask shows task with its subtasks. A nil task clears the view.
func (m *Model) SetTask(task *model.Task, subtasks []model.Task, now time.Time) {
	if task == nil || m.task == nil || m.task.ID != task.ID {
		m.cursor = 0
		m.renaming = false
	}
	m.task = task
	m.subtasks = subtasks
	m.now = now
	if m.cursor >= len(subtasks) {
		m.cursor = len(subtasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.viewport.SetContent(m.renderContent())
}

// Renaming reports whether the inline rename input has focus.
func (m Model) Renaming() bool {
	return m.renaming
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.task == nil {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.renaming {
		return m.updateRename(keyMsg)
	}

	taskID := m.task.ID
	switch {
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.subtasks)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Edit):
		return m, action(ActionMsg{Action: ActionEdit, TaskID: taskID})

	case key.Matches(keyMsg, m.keys.Delete):
		if sub, ok := m.currentSubtask(); ok {
			return m, action(ActionMsg{Action: ActionDeleteSubtask, TaskID: sub.ID})
		}
		return m, action(ActionMsg{Action: ActionDelete, TaskID: taskID})

	case key.Matches(keyMsg, m.keys.AddSubtask):
		return m, action(ActionMsg{Action: ActionAddSubtask, TaskID: taskID})

	case key.Matches(keyMsg, m.keys.ToggleDone):
		if sub, ok := m.currentSubtask(); ok {
			return m, action(ActionMsg{
				Action: ActionToggleSubtask,
				TaskID: sub.ID,
				Done:   sub.Status != model.StatusDone,
			})
		}

	case key.Matches(keyMsg, m.keys.Rename):
		if sub, ok := m.currentSubtask(); ok {
			m.renaming = true
			m.input.SetValue(sub.Text)
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	}

	m.viewport.SetContent(m.renderContent())
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.renaming = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.renaming = false
		m.input.Blur()
		sub, ok := m.currentSubtask()
		if !ok {
			return m, nil
		}
		return m, action(ActionMsg{
			Action: ActionRenameSubtask,
			TaskID: sub.ID,
			Text:   m.input.Value(),
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) currentSubtask() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.subtasks) {
		return model.Task{}, false
	}
	return m.subtasks[m.cursor], true
}

func action(msg ActionMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		return theme.HelpStyle.Render("No task selected.")
	}

	content := m.viewport.View()
	if m.renaming {
		content = lipgloss.JoinVertical(lipgloss.Left, content, m.input.View())
	}
	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// renderContent builds the full text content for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}
	t := m.task
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)
	labelStyle := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Width(12)

	b.WriteString(titleStyle.Render(t.Text))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			value = theme.HelpStyle.Render("none")
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label), value)
	}
	field("Status", theme.StatusStyle(t.Status).Render(t.Status.Label()))
	field("Priority", theme.PriorityStyle(t.Priority).Render(string(t.Priority)))
	field("Due", ui.DueBadge(*t, m.now))
	field("Tags", ui.Tags(t.Tags))
	field("Updated", t.UpdatedAt.Local().Format("Jan 2 15:04"))

	if t.Description != "" {
		b.WriteString("\n")
		b.WriteString(t.Description)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	done := 0
	for _, s := range m.subtasks {
		if s.Status == model.StatusDone {
			done++
		}
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Subtasks (%d/%d)", done, len(m.subtasks))))
	b.WriteString("\n")
	if len(m.subtasks) == 0 {
		b.WriteString(theme.HelpStyle.Render("No subtasks. Press s to add one."))
		b.WriteString("\n")
	}
	for i, s := range m.subtasks {
		box := "[ ]"
		if s.Status == model.StatusDone {
			box = "[x]"
		}
		line := box + " " + s.Text
		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("e edit · d delete · s add subtask · space toggle · r rename · esc back"))
	return b.String()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 8
	m.viewport.Height = height - 4
	m.input.Width = width - 16
	m.viewport.SetContent(m.renderContent())
}
