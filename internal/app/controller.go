package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/ordering"
	"github.com/nhle/taskflow/internal/projection"
	"github.com/nhle/taskflow/internal/quickinput"
	tasksync "github.com/nhle/taskflow/internal/sync"
	"github.com/nhle/taskflow/internal/undo"
)

// View is the active projection.
type View string

// Views, in switcher order.
const (
	ViewKanban   View = "kanban"
	ViewList     View = "list"
	ViewCalendar View = "calendar"
)

// Views lists every view in switcher order.
var Views = []View{ViewKanban, ViewList, ViewCalendar}

// ParseView returns the view named s, or ViewKanban when s is unknown.
func ParseView(s string) View {
	for _, v := range Views {
		if string(v) == s {
			return v
		}
	}
	return ViewKanban
}

// Theme is the colour scheme.
type Theme string

// Themes.
const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme returns the theme named s, defaulting to dark.
func ParseTheme(s string) Theme {
	if s == string(ThemeLight) {
		return ThemeLight
	}
	return ThemeDark
}

// ErrUnknownTask is returned by intents that target a task missing from
// the local collection.
var ErrUnknownTask = errors.New("task not found")

// ErrInvalidInput wraps rejected form or move input.
var ErrInvalidInput = errors.New("invalid input")

// State is the presentation state that is not derived from tasks.
type State struct {
	View       View
	Theme      Theme
	Month      time.Time
	Filter     projection.ListFilter
	SelectedID string
	QuickInput string
}

// ViewModel is everything a renderer needs for one frame.
type ViewModel struct {
	Online     bool                  `json:"online"`
	View       View                  `json:"view"`
	Theme      Theme                 `json:"theme"`
	Month      time.Time             `json:"month"`
	Filter     projection.ListFilter `json:"filter"`
	QuickInput string                `json:"quickInput"`
	Board      projection.Board      `json:"board"`
	List       []model.Task          `json:"list"`
	Calendar   projection.Calendar   `json:"calendar"`
	Selected   *model.Task           `json:"selected,omitempty"`
	Subtasks   []model.Task          `json:"subtasks,omitempty"`
	CanUndo    bool                  `json:"canUndo"`
	Now        time.Time             `json:"now"`
}

// FormInput is the content of the task edit form.
type FormInput struct {
	Text        string
	Description string
	Status      model.Status
	Priority    model.Priority
	Tags        string
	DueDate     string
}

// Controller turns user intents into session writes and derives the
// ViewModel. It is shared by the TUI, the HTTP API and the CLI.
type Controller struct {
	session *tasksync.Session
	notify  notify.Notifier
	log     *logrus.Entry
	now     func() time.Time
	save    func(Theme) error

	mu    gosync.Mutex
	state State
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNotifier sets where validation messages go.
func WithNotifier(n notify.Notifier) ControllerOption {
	return func(c *Controller) { c.notify = n }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) ControllerOption {
	return func(c *Controller) { c.log = log.WithField("component", "app") }
}

// WithClock overrides the clock used for parsing and projections.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithPreferences persists theme changes through save.
func WithPreferences(save func(Theme) error) ControllerOption {
	return func(c *Controller) { c.save = save }
}

// WithInitialState sets the starting view and theme.
func WithInitialState(view View, theme Theme) ControllerOption {
	return func(c *Controller) {
		c.state.View = view
		c.state.Theme = theme
	}
}

// NewController creates a Controller over session.
func NewController(session *tasksync.Session, opts ...ControllerOption) *Controller {
	c := &Controller{
		session: session,
		notify:  notify.Discard,
		log:     logrus.StandardLogger().WithField("component", "app"),
		now:     time.Now,
		save:    func(Theme) error { return nil },
		state:   State{View: ViewKanban, Theme: ThemeDark},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Month = projection.MonthStart(c.now())
	return c
}

// Session returns the underlying sync session.
func (c *Controller) Session() *tasksync.Session {
	return c.session
}

// State returns a copy of the presentation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View derives the current ViewModel from the collection and state.
func (c *Controller) View() ViewModel {
	st := c.State()
	tasks := c.session.Tasks().Tasks
	now := c.now()

	vm := ViewModel{
		Online:     c.session.Online(),
		View:       st.View,
		Theme:      st.Theme,
		Month:      st.Month,
		Filter:     st.Filter,
		QuickInput: st.QuickInput,
		Board:      projection.BuildBoard(tasks),
		List:       projection.BuildList(tasks, st.Filter),
		Calendar:   projection.BuildCalendar(tasks, st.Month, now),
		CanUndo:    c.session.CanUndo(),
		Now:        now,
	}
	if st.SelectedID != "" {
		if t, ok := c.session.Task(st.SelectedID); ok {
			vm.Selected = &t
			vm.Subtasks = projection.Subtasks(tasks, t.ID)
		}
	}
	return vm
}

// SetQuickInput stores the pending quick-add text.
func (c *Controller) SetQuickInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.QuickInput = text
}

// QuickAdd parses input and creates the task. Blank input is ignored.
func (c *Controller) QuickAdd(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	draft := quickinput.Parse(input, c.now())
	id, err := c.session.Create(ctx, draft)
	if err != nil {
		return "", err
	}
	c.SetQuickInput("")
	return id, nil
}

// Move places task id at index within the status column, counting the
// column without the task itself. When the neighbours' keys are too close
// to split, the column is respaced first and the task placed among the
// new keys.
func (c *Controller) Move(ctx context.Context, id string, status model.Status, index int) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	if _, ok := c.session.Task(id); !ok {
		return fmt.Errorf("moving task %s: %w", id, ErrUnknownTask)
	}

	now := c.now()
	column := ordering.Column(c.session.Tasks().Tasks, status, id)
	if ordering.Exhausted(column, index, now) {
		c.log.WithFields(logrus.Fields{"status": status, "size": len(column)}).
			Info("rebalancing column")
		var err error
		if column, err = c.rebalance(ctx, column); err != nil {
			return err
		}
	}

	order := ordering.Compute(column, index, now)
	return c.session.Update(ctx, id, model.Patch{Status: &status, Order: &order})
}

// rebalance writes evenly spaced keys for column and returns the column
// with those keys applied.
func (c *Controller) rebalance(ctx context.Context, column []model.Task) ([]model.Task, error) {
	placed := make(map[string]float64)
	for _, p := range ordering.Rebalance(column) {
		order := p.Order
		if err := c.session.Update(ctx, p.TaskID, model.Patch{Order: &order}); err != nil {
			return nil, err
		}
		placed[p.TaskID] = p.Order
	}

	out := make([]model.Task, len(column))
	for i, t := range column {
		if order, ok := placed[t.ID]; ok {
			t.Order = order
		}
		out[i] = t
	}
	return out, nil
}

// SaveForm validates the edit form and updates task id, or creates a new
// task when id is empty.
func (c *Controller) SaveForm(ctx context.Context, id string, in FormInput) (string, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		notify.Warning(c.notify, "Task title is required")
		return "", fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}

	var due *model.DueDate
	if s := strings.TrimSpace(in.DueDate); s != "" {
		d, err := model.ParseDueDate(s, c.now().Location())
		if err != nil {
			notify.Warning(c.notify, "Invalid due date")
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		due = &d
	}

	status, priority := in.Status, in.Priority
	if !status.Valid() {
		status = model.StatusBacklog
	}
	if !priority.Valid() {
		priority = model.PriorityNormal
	}
	description := strings.TrimSpace(in.Description)
	tags := quickinput.ParseTags(in.Tags)

	if id == "" {
		return c.session.Create(ctx, model.Draft{
			Text:        text,
			Description: description,
			Status:      status,
			Priority:    priority,
			Tags:        tags,
			DueDate:     due,
		})
	}

	patch := model.Patch{
		Text:         &text,
		Description:  &description,
		Status:       &status,
		Priority:     &priority,
		Tags:         &tags,
		DueDate:      due,
		ClearDueDate: due == nil,
	}
	if err := c.session.Update(ctx, id, patch); err != nil {
		return "", err
	}
	return id, nil
}

// AddSubtask creates a placeholder subtask under parentID.
func (c *Controller) AddSubtask(ctx context.Context, parentID string) (string, error) {
	if _, ok := c.session.Task(parentID); !ok {
		return "", fmt.Errorf("adding subtask to %s: %w", parentID, ErrUnknownTask)
	}
	parent := parentID
	return c.session.Create(ctx, model.Draft{
		Text:     "New subtask",
		Status:   model.StatusBacklog,
		Priority: model.PriorityNormal,
		ParentID: &parent,
	})
}

// ToggleSubtask marks subtask id done, or back to backlog.
func (c *Controller) ToggleSubtask(ctx context.Context, id string, done bool) error {
	status := model.StatusBacklog
	if done {
		status = model.StatusDone
	}
	return c.session.Update(ctx, id, model.Patch{Status: &status})
}

// RenameSubtask sets the text of subtask id.
func (c *Controller) RenameSubtask(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		notify.Warning(c.notify, "Task title is required")
		return fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	return c.session.Update(ctx, id, model.Patch{Text: &text})
}

// ClickCalendarDay creates the pending quick-add task due on day. Days
// outside the displayed month are ignored.
func (c *Controller) ClickCalendarDay(ctx context.Context, day time.Time) (string, error) {
	st := c.State()
	if day.Year() != st.Month.Year() || day.Month() != st.Month.Month() {
		return "", nil
	}

	input := strings.TrimSpace(st.QuickInput)
	if input == "" {
		notify.Info(c.notify, "Click on a day to set due date for new tasks")
		return "", nil
	}

	draft := quickinput.Parse(input, c.now())
	due := model.NewDueDate(day)
	draft.DueDate = &due
	id, err := c.session.Create(ctx, draft)
	if err != nil {
		return "", err
	}
	c.SetQuickInput("")
	return id, nil
}

// PrevMonth shows the previous calendar month.
func (c *Controller) PrevMonth() {
	c.shiftMonth(-1)
}

// NextMonth shows the next calendar month.
func (c *Controller) NextMonth() {
	c.shiftMonth(1)
}

// SetMonth shows the month containing t.
func (c *Controller) SetMonth(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Month = projection.MonthStart(t)
}

func (c *Controller) shiftMonth(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Month = c.state.Month.AddDate(0, n, 0)
}

// ToggleTheme flips between dark and light and persists the choice. The
// new theme stays active even if saving fails.
func (c *Controller) ToggleTheme() (Theme, error) {
	c.mu.Lock()
	if c.state.Theme == ThemeDark {
		c.state.Theme = ThemeLight
	} else {
		c.state.Theme = ThemeDark
	}
	theme := c.state.Theme
	c.mu.Unlock()

	if err := c.save(theme); err != nil {
		c.log.WithError(err).Warn("saving theme preference")
		notify.Warning(c.notify, "Could not save theme preference")
		return theme, fmt.Errorf("saving theme: %w", err)
	}
	return theme, nil
}

// SetFilter replaces the list filter.
func (c *Controller) SetFilter(f projection.ListFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = f
}

// SwitchView activates v.
func (c *Controller) SwitchView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.View = v
}

// Select opens task id in the detail pane; "" closes it.
func (c *Controller) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectedID = id
}

// Delete removes task id and its subtasks, closing it if selected.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.session.Delete(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state.SelectedID == id {
		c.state.SelectedID = ""
	}
	c.mu.Unlock()
	return nil
}

// Undo reverses the last recorded write.
func (c *Controller) Undo(ctx context.Context) (undo.Outcome, error) {
	return c.session.Undo(ctx)
}
