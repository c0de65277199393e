package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/projection"
	tasksync "github.com/nhle/taskflow/internal/sync"
	"github.com/nhle/taskflow/internal/theme"
	"github.com/nhle/taskflow/internal/ui"
	"github.com/nhle/taskflow/internal/ui/authform"
	"github.com/nhle/taskflow/internal/ui/board"
	"github.com/nhle/taskflow/internal/ui/calendar"
	"github.com/nhle/taskflow/internal/ui/command"
	"github.com/nhle/taskflow/internal/ui/detail"
	helpview "github.com/nhle/taskflow/internal/ui/help"
	"github.com/nhle/taskflow/internal/ui/taskform"
	"github.com/nhle/taskflow/internal/ui/tasklist"
)

// noticeTTL is how long a notification replaces the key hints.
const noticeTTL = 5 * time.Second

// Mode is the screen the root model routes input to.
type Mode int

const (
	ModeMain Mode = iota
	ModeDetail
	ModeForm
	ModeAuth
	ModeHelp
	ModeCommand
)

type notificationMsg struct {
	n model.Notification
}

type clearNoticeMsg struct {
	seq int
}

type authStateMsg struct {
	state auth.State
}

type authResultMsg struct {
	mode authform.Mode
	err  error
}

// intentDoneMsg reports a finished controller intent. Failures have
// already been notified by the session or controller.
type intentDoneMsg struct {
	err error
}

// Model is the root Bubble Tea model. It routes input to the active
// screen, turns view messages into controller intents and re-renders on
// every collection change.
type Model struct {
	ctx    context.Context
	ctrl   *Controller
	gate   *auth.Gate
	feed   *notify.Feed
	log    *logrus.Entry
	keys   *keys.KeyMap
	layout ui.Layout

	mode     Mode
	previous Mode
	ready    bool

	quickAdd textinput.Model
	typing   bool

	board    board.Model
	taskList tasklist.Model
	calendar calendar.Model
	detail   detail.Model
	form     taskform.Model
	authForm authform.Model
	helpView helpview.Model
	palette  command.Model

	authStates <-chan auth.State
	identity   auth.Identity

	notice    *model.Notification
	noticeSeq int
	vm        ViewModel
}

// New creates the root model. feed must be the notifier the controller,
// session and gate report to. The model subscribes to gate immediately;
// call the returned func when the program exits.
func New(ctx context.Context, ctrl *Controller, gate *auth.Gate, feed *notify.Feed, log *logrus.Logger) (Model, func()) {
	k := keys.DefaultKeyMap()

	ti := textinput.New()
	ti.Placeholder = `Quick add: "Call mom tomorrow 3pm #family !high"`
	ti.Prompt = "+ "
	ti.CharLimit = 500

	states, unsubscribe := gate.Subscribe()

	m := Model{
		ctx:        ctx,
		ctrl:       ctrl,
		gate:       gate,
		feed:       feed,
		log:        log.WithField("component", "tui"),
		keys:       k,
		layout:     ui.NewLayout(80, 24),
		mode:       ModeAuth,
		quickAdd:   ti,
		board:      board.New(k, 80, 24),
		taskList:   tasklist.New(k, 80, 24),
		calendar:   calendar.New(k, 80, 24),
		detail:     detail.New(k, 80, 24),
		form:       taskform.New(80, 24),
		authForm:   authform.New(80, 24),
		helpView:   helpview.New(k, 80, 24),
		palette:    command.New(paletteItems, 80, 24),
		authStates: states,
	}
	m.refresh()
	return m, unsubscribe
}

func paletteItems(query string) []command.Item {
	cmds := FilterCommands(query)
	items := make([]command.Item, len(cmds))
	for i, c := range cmds {
		items[i] = command.Item{
			ID:          string(c.ID),
			Title:       c.Title,
			Description: c.Description,
			Shortcut:    c.Shortcut,
		}
	}
	return items
}

// Init starts listening for collection changes, notifications and auth
// state.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.ctrl.Session().WaitForChange(),
		m.waitForNotification(),
		m.waitForAuth(),
		m.authForm.Start(authform.ModeSignIn),
	)
}

func (m Model) waitForNotification() tea.Cmd {
	ch := m.feed.C()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{n: n}
	}
}

func (m Model) waitForAuth() tea.Cmd {
	ch := m.authStates
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return authStateMsg{state: st}
	}
}

// run executes a controller intent off the UI goroutine.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return intentDoneMsg{err: fn(ctx)}
	}
}

// refresh re-derives the view model and pushes it into every view.
func (m *Model) refresh() tea.Cmd {
	m.vm = m.ctrl.View()
	theme.Apply(m.vm.Theme == ThemeDark)

	m.board.SetBoard(m.vm.Board, m.vm.Now)
	m.calendar.SetCalendar(m.vm.Calendar)
	m.detail.SetTask(m.vm.Selected, m.vm.Subtasks, m.vm.Now)
	if m.mode == ModeDetail && m.vm.Selected == nil {
		m.mode = ModeMain
	}
	return m.taskList.SetTasks(m.vm.List, m.vm.Filter, m.vm.Now)
}

func (m *Model) open(mode Mode) {
	if m.mode != mode {
		m.previous = m.mode
	}
	m.mode = mode
}

func (m *Model) back() {
	m.mode = m.previous
	m.previous = ModeMain
	if m.mode == ModeDetail && m.vm.Selected == nil {
		m.mode = ModeMain
	}
}

// Update handles messages and dispatches to the active screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.quickAdd.Width = w - 4
		m.board.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.calendar.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.form.SetSize(w, h)
		m.authForm.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.palette.SetSize(w, h)
		return m.updateActive(msg)

	case tasksync.ChangedMsg:
		return m, tea.Batch(m.refresh(), m.ctrl.Session().WaitForChange())

	case notificationMsg:
		n := msg.n
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Batch(
			m.waitForNotification(),
			tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} }),
			m.refresh(),
		)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case authStateMsg:
		return m.handleAuthState(msg.state)

	case authResultMsg:
		if msg.err != nil {
			return m, m.authForm.Fail(auth.UserMessage(msg.err))
		}
		m.authForm.Done()
		if msg.mode == authform.ModeChangePassword {
			m.back()
		}
		return m, nil

	case intentDoneMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Debug("intent failed")
		}
		if v := m.ctrl.State().QuickInput; v != m.quickAdd.Value() {
			m.quickAdd.SetValue(v)
		}
		return m, m.refresh()

	case board.MoveMsg:
		id, status, index := msg.TaskID, msg.Status, msg.Index
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.Move(ctx, id, status, index)
		})

	case board.SelectedTaskMsg:
		return m.openDetail(msg.TaskID)
	case tasklist.SelectedTaskMsg:
		return m.openDetail(msg.TaskID)
	case calendar.SelectedTaskMsg:
		return m.openDetail(msg.TaskID)

	case calendar.DayMsg:
		day := msg.Date
		m.ctrl.SetQuickInput(m.quickAdd.Value())
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.ClickCalendarDay(ctx, day)
			return err
		})

	case calendar.MonthMsg:
		if msg.Delta < 0 {
			m.ctrl.PrevMonth()
		} else {
			m.ctrl.NextMonth()
		}
		return m, m.refresh()

	case detail.BackMsg:
		m.ctrl.Select("")
		m.mode = ModeMain
		return m, m.refresh()

	case detail.ActionMsg:
		return m.handleDetailAction(msg)

	case taskform.SubmitMsg:
		m.back()
		id, v := msg.TaskID, msg.Values
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.SaveForm(ctx, id, FormInput{
				Text:        v.Text,
				Description: v.Description,
				Status:      v.Status,
				Priority:    v.Priority,
				Tags:        v.Tags,
				DueDate:     v.DueDate,
			})
			return err
		})

	case taskform.CancelMsg:
		m.back()
		return m, nil

	case command.CloseMsg:
		m.back()
		return m, nil

	case command.CommandMsg:
		m.back()
		return m.executeCommand(CommandID(msg))

	case authform.SubmitMsg:
		return m, m.submitAuth(msg)

	case authform.CancelMsg:
		m.back()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeMain:
			return m.handleMainKeys(msg)
		case ModeHelp:
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
				m.back()
			}
			return m, nil
		case ModeDetail:
			if !m.detail.Renaming() && key.Matches(msg, m.keys.Help) {
				m.open(ModeHelp)
				return m, nil
			}
		}
	}

	return m.updateActive(msg)
}

func (m Model) handleAuthState(st auth.State) (tea.Model, tea.Cmd) {
	wait := m.waitForAuth()
	m.identity = st.Identity
	if !st.SignedIn {
		m.typing = false
		m.quickAdd.Blur()
		m.notice = nil
		m.mode = ModeAuth
		m.previous = ModeMain
		return m, tea.Batch(wait, m.authForm.Start(authform.ModeSignIn), m.refresh())
	}
	if m.mode == ModeAuth {
		m.authForm.Done()
		m.mode = ModeMain
	}
	return m, tea.Batch(wait, m.refresh())
}

func (m Model) submitAuth(msg authform.SubmitMsg) tea.Cmd {
	gate := m.gate
	ctx := m.ctx
	return func() tea.Msg {
		var err error
		switch msg.Mode {
		case authform.ModeSignUp:
			err = gate.SignUp(ctx, msg.Email, msg.Password)
		case authform.ModeChangePassword:
			err = gate.ChangePassword(ctx, msg.Password, msg.NewPassword)
		default:
			err = gate.SignIn(ctx, msg.Email, msg.Password)
		}
		return authResultMsg{mode: msg.Mode, err: err}
	}
}

func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	m.ctrl.Select(id)
	m.open(ModeDetail)
	return m, m.refresh()
}

func (m Model) handleDetailAction(msg detail.ActionMsg) (tea.Model, tea.Cmd) {
	id := msg.TaskID
	switch msg.Action {
	case detail.ActionEdit:
		if m.vm.Selected == nil {
			return m, nil
		}
		m.open(ModeForm)
		return m, m.form.StartEdit(*m.vm.Selected)
	case detail.ActionDelete:
		m.mode = ModeMain
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.Delete(ctx, id)
		})
	case detail.ActionDeleteSubtask:
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.Session().Delete(ctx, id)
		})
	case detail.ActionAddSubtask:
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.AddSubtask(ctx, id)
			return err
		})
	case detail.ActionToggleSubtask:
		done := msg.Done
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.ToggleSubtask(ctx, id, done)
		})
	case detail.ActionRenameSubtask:
		text := msg.Text
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.RenameSubtask(ctx, id, text)
		})
	}
	return m, nil
}

// handleMainKeys processes keys on the board, list and calendar screens.
func (m Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		return m.handleQuickAddKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.open(ModeHelp)
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.open(ModeCommand)
		return m, m.palette.Open()

	case key.Matches(msg, m.keys.New):
		m.typing = true
		return m, m.quickAdd.Focus()

	case key.Matches(msg, m.keys.Kanban):
		m.ctrl.SwitchView(ViewKanban)
		return m, m.refresh()
	case key.Matches(msg, m.keys.List):
		m.ctrl.SwitchView(ViewList)
		return m, m.refresh()
	case key.Matches(msg, m.keys.Calendar):
		m.ctrl.SwitchView(ViewCalendar)
		return m, m.refresh()

	case key.Matches(msg, m.keys.ToggleTheme):
		return m.executeCommand(CommandToggleTheme)

	case key.Matches(msg, m.keys.Undo):
		return m.executeCommand(CommandUndo)

	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()

	case key.Matches(msg, m.keys.SignOut):
		gate := m.gate
		ctx := m.ctx
		return m, func() tea.Msg {
			return intentDoneMsg{err: gate.SignOut(ctx)}
		}

	case key.Matches(msg, m.keys.ChangePasswd):
		m.open(ModeAuth)
		return m, m.authForm.Start(authform.ModeChangePassword)

	case key.Matches(msg, m.keys.CycleStatus) && m.vm.View == ViewList:
		f := m.vm.Filter
		f.Status = nextStatus(f.Status)
		m.ctrl.SetFilter(f)
		return m, m.refresh()

	case key.Matches(msg, m.keys.CyclePrio) && m.vm.View == ViewList:
		f := m.vm.Filter
		f.Priority = nextPriority(f.Priority)
		m.ctrl.SetFilter(f)
		return m, m.refresh()

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selectedTask(); ok {
			m.ctrl.Select(t.ID)
			m.open(ModeForm)
			return m, m.form.StartEdit(t)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selectedTask(); ok {
			id := t.ID
			return m, m.run(func(ctx context.Context) error {
				return m.ctrl.Delete(ctx, id)
			})
		}
		return m, nil
	}

	return m.updateActive(msg)
}

func (m Model) handleQuickAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.typing = false
		m.quickAdd.Blur()
		return m, nil
	case tea.KeyEnter:
		input := m.quickAdd.Value()
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.QuickAdd(ctx, input)
			return err
		})
	}

	var cmd tea.Cmd
	m.quickAdd, cmd = m.quickAdd.Update(msg)
	m.ctrl.SetQuickInput(m.quickAdd.Value())
	return m, cmd
}

func (m Model) executeCommand(id CommandID) (tea.Model, tea.Cmd) {
	switch id {
	case CommandNewTask:
		status := model.StatusBacklog
		if t, ok := m.selectedTask(); ok && m.vm.View == ViewKanban {
			status = t.Status
		}
		m.open(ModeForm)
		return m, m.form.StartCreate(status)
	case CommandKanban, CommandList, CommandCalendar, CommandToggleTheme:
		if err := m.ctrl.Execute(m.ctx, id); err != nil {
			m.log.WithError(err).Warn("executing command")
		}
		return m, m.refresh()
	}
	return m, m.run(func(ctx context.Context) error {
		return m.ctrl.Execute(ctx, id)
	})
}

// reload restarts the subscription for the signed-in user so the
// collection is fetched again.
func (m Model) reload() tea.Cmd {
	session := m.ctrl.Session()
	feed := m.feed
	ctx := m.ctx
	return func() tea.Msg {
		owner := session.Owner()
		if owner == "" {
			return intentDoneMsg{err: tasksync.ErrNoSession}
		}
		if err := session.Start(ctx, owner); err != nil {
			return intentDoneMsg{err: err}
		}
		notify.Info(feed, "Tasks reloaded")
		return intentDoneMsg{}
	}
}

func (m Model) selectedTask() (model.Task, bool) {
	switch m.vm.View {
	case ViewList:
		return m.taskList.Selected()
	case ViewCalendar:
		day, ok := m.calendar.Day()
		if !ok || len(day.Tasks) == 0 {
			return model.Task{}, false
		}
		return day.Tasks[0], true
	default:
		return m.board.Selected()
	}
}

func nextStatus(s model.Status) model.Status {
	if s == "" {
		return model.Statuses[0]
	}
	for i, st := range model.Statuses {
		if st == s && i+1 < len(model.Statuses) {
			return model.Statuses[i+1]
		}
	}
	return ""
}

func nextPriority(p model.Priority) model.Priority {
	if p == "" {
		return model.Priorities[0]
	}
	for i, pr := range model.Priorities {
		if pr == p && i+1 < len(model.Priorities) {
			return model.Priorities[i+1]
		}
	}
	return ""
}

// updateActive dispatches the message to the current screen.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.mode {
	case ModeMain:
		switch m.vm.View {
		case ViewList:
			m.taskList, cmd = m.taskList.Update(msg)
		case ViewCalendar:
			m.calendar, cmd = m.calendar.Update(msg)
		default:
			m.board, cmd = m.board.Update(msg)
		}
	case ModeDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ModeForm:
		m.form, cmd = m.form.Update(msg)
	case ModeAuth:
		m.authForm, cmd = m.authForm.Update(msg)
	case ModeCommand:
		m.palette, cmd = m.palette.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "taskflow"
	if m.identity.Email != "" {
		title += " · " + m.identity.Email
	}
	header := m.layout.RenderHeader(title, m.viewSwitcher(), !m.vm.Online)

	input := ""
	if m.mode == ModeMain {
		input = m.quickAdd.View()
	}

	var status string
	if m.notice != nil {
		status = m.layout.RenderNotification(*m.notice)
	} else {
		status = m.layout.RenderStatusBar(m.keyHints())
	}

	return m.layout.RenderWithFrame(header, input, m.renderContent(), status)
}

func (m Model) viewSwitcher() string {
	out := ""
	for i, v := range Views {
		label := string(v)
		if v == m.vm.View {
			label = "[" + label + "]"
		}
		if i > 0 {
			out += " "
		}
		out += label
	}
	if m.vm.View == ViewList {
		out += " · " + filterSummary(m.vm.Filter)
	}
	return out
}

func filterSummary(f projection.ListFilter) string {
	s, p := "all", "all"
	if f.Status != "" {
		s = f.Status.Label()
	}
	if f.Priority != "" {
		p = string(f.Priority)
	}
	return "status:" + s + " priority:" + p
}

// renderContent returns the rendered string for the current screen.
func (m Model) renderContent() string {
	switch m.mode {
	case ModeDetail:
		return m.detail.View()
	case ModeForm:
		return m.form.View()
	case ModeAuth:
		return m.authForm.View()
	case ModeHelp:
		return m.helpView.View()
	case ModeCommand:
		return m.palette.View()
	}
	switch m.vm.View {
	case ViewList:
		return m.taskList.View()
	case ViewCalendar:
		return m.calendar.View()
	default:
		return m.board.View()
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.mode {
	case ModeHelp:
		return "? close help | esc back"
	case ModeCommand:
		return "enter execute | ↑/↓ select | esc close"
	case ModeDetail:
		return "e edit | d delete | s subtask | space toggle | r rename | esc back"
	case ModeForm:
		return "enter submit | esc cancel"
	case ModeAuth:
		return "enter submit | ctrl+c quit"
	}
	if m.typing {
		return "enter add | esc cancel"
	}
	switch m.vm.View {
	case ViewCalendar:
		return "[ ] month | a add on day | enter open | n quick add | ? help"
	case ViewList:
		return "f status | p priority | enter open | n quick add | ? help"
	}
	return m.helpView.ShortView()
}
