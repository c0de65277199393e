package authform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/theme"
)

// Mode selects which credential form is shown.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
	ModeChangePassword
)

func (m Mode) title() string {
	switch m {
	case ModeSignUp:
		return "Create Account"
	case ModeChangePassword:
		return "Change Password"
	default:
		return "Sign In"
	}
}

// SubmitMsg carries the credentials entered by the user. For
// ModeChangePassword Email is empty and Password is the current password.
type SubmitMsg struct {
	Mode        Mode
	Email       string
	Password    string
	NewPassword string
}

// CancelMsg is dispatched when the user dismisses a change-password form.
// Sign-in and sign-up forms cannot be cancelled, only switched.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email       string
	password    string
	newPassword string
	confirm     string
}

// Model is the Bubble Tea model for the sign-in, sign-up and
// change-password forms.
type Model struct {
	mode       Mode
	form       *huh.Form
	fb         *formBindings
	submitting bool
	errText    string
	spinner    spinner.Model
	width      int
	height     int
}

// New creates an auth form model showing the sign-in form.
func New(width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.reset(ModeSignIn, "")
	return m
}

// Start shows the form for mode with empty fields.
func (m *Model) Start(mode Mode) tea.Cmd {
	m.reset(mode, "")
	return m.form.Init()
}

// Mode returns the form currently shown.
func (m Model) Mode() Mode {
	return m.mode
}

// Submitting reports whether a submitted request is awaiting its result.
func (m Model) Submitting() bool {
	return m.submitting
}

// Fail ends a pending submission and shows text above a fresh form. The
// e-mail is kept so the user only retypes passwords.
func (m *Model) Fail(text string) tea.Cmd {
	m.reset(m.mode, m.fb.email)
	m.errText = text
	return m.form.Init()
}

// Done ends a pending submission successfully.
func (m *Model) Done() {
	m.submitting = false
	m.errText = ""
}

func (m *Model) reset(mode Mode, email string) {
	m.mode = mode
	m.submitting = false
	m.errText = ""
	*m.fb = formBindings{email: email}
	m.form = m.buildForm()
}

// Update handles messages for the auth form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	if m.submitting {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+n" && m.mode != ModeChangePassword {
		next := ModeSignUp
		if m.mode == ModeSignUp {
			next = ModeSignIn
		}
		m.reset(next, m.fb.email)
		return m, m.form.Init()
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submitting = true
		m.errText = ""
		submit := SubmitMsg{
			Mode:        m.mode,
			Email:       strings.TrimSpace(m.fb.email),
			Password:    m.fb.password,
			NewPassword: m.fb.newPassword,
		}
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return submit })
	case huh.StateAborted:
		if m.mode == ModeChangePassword {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		m.reset(m.mode, m.fb.email)
		return m, m.form.Init()
	}

	return m, cmd
}

// View renders the active form.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	rows := []string{titleStyle.Render("taskflow · " + m.mode.title())}
	if m.errText != "" {
		rows = append(rows, theme.OverdueStyle.Render(m.errText), "")
	}
	if m.submitting {
		rows = append(rows, m.spinner.View()+" Please wait...")
	} else {
		rows = append(rows, m.form.View())
	}

	switch m.mode {
	case ModeSignIn:
		rows = append(rows, theme.HelpStyle.Render("ctrl+n create an account"))
	case ModeSignUp:
		rows = append(rows, theme.HelpStyle.Render("ctrl+n sign in instead"))
	case ModeChangePassword:
		rows = append(rows, theme.HelpStyle.Render("esc cancel"))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	var fields []huh.Field
	switch m.mode {
	case ModeChangePassword:
		fields = []huh.Field{
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Current password")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.newPassword).
				Validate(validateRequired("New password")),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm).
				Validate(m.validateConfirm(&m.fb.newPassword)),
		}
	case ModeSignUp:
		fields = []huh.Field{
			m.emailField(),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm).
				Validate(m.validateConfirm(&m.fb.password)),
		}
	default:
		fields = []huh.Field{
			m.emailField(),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
		}
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(m.formWidth())
}

func (m *Model) emailField() huh.Field {
	return huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Value(&m.fb.email).
		Validate(validateRequired("Email"))
}

func (m *Model) validateConfirm(password *string) func(string) error {
	return func(s string) error {
		if s != *password {
			return fmt.Errorf("passwords do not match")
		}
		return nil
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 60 {
		w = 60
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
