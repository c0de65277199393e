package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
)

// Values is the content of a submitted form. Tags is the raw
// comma-separated field and DueDate is YYYY-MM-DD or empty.
type Values struct {
	Text        string
	Description string
	Status      model.Status
	Priority    model.Priority
	Tags        string
	DueDate     string
}

// SubmitMsg is dispatched when the user completes the form. TaskID is
// empty for a new task.
type SubmitMsg struct {
	TaskID string
	Values Values
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	text        string
	description string
	status      model.Status
	priority    model.Priority
	tags        string
	dueDate     string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID string
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{status: model.StatusBacklog, priority: model.PriorityNormal},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task in status.
func (m *Model) StartCreate(status model.Status) tea.Cmd {
	if !status.Valid() {
		status = model.StatusBacklog
	}
	m.editID = ""
	*m.fb = formBindings{status: status, priority: model.PriorityNormal}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with the fields of an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editID = task.ID
	*m.fb = formBindings{
		text:        task.Text,
		description: task.Description,
		status:      task.Status,
		priority:    task.Priority,
		tags:        strings.Join(task.Tags, ", "),
	}
	if task.DueDate != nil {
		m.fb.dueDate = task.DueDate.Time.Format(model.DateLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool {
	return m.editID != ""
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := SubmitMsg{
			TaskID: m.editID,
			Values: Values{
				Text:        strings.TrimSpace(m.fb.text),
				Description: m.fb.description,
				Status:      m.fb.status,
				Priority:    m.fb.priority,
				Tags:        m.fb.tags,
				DueDate:     strings.TrimSpace(m.fb.dueDate),
			},
		}
		m.form = nil
		return m, func() tea.Msg { return submit }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.Editing() {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	statusOpts := make([]huh.Option[model.Status], len(model.Statuses))
	for i, s := range model.Statuses {
		statusOpts[i] = huh.NewOption(s.Label(), s)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.text).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[model.Status]().
				Title("Status").
				Options(statusOpts...).
				Value(&m.fb.status),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Normal", model.PriorityNormal),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Tags").
				Placeholder("comma, separated").
				Value(&m.fb.tags),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateOptionalDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
