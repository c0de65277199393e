package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down  key.Binding
	Up    key.Binding
	Left  key.Binding
	Right key.Binding

	// Moving the selected card
	MoveLeft  key.Binding
	MoveRight key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Views
	Kanban   key.Binding
	List     key.Binding
	Calendar key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Actions
	New          key.Binding
	Edit         key.Binding
	Delete       key.Binding
	Undo         key.Binding
	AddSubtask   key.Binding
	Rename       key.Binding
	Reload       key.Binding
	ToggleDone   key.Binding
	ToggleTheme  key.Binding
	CycleStatus  key.Binding
	CyclePrio    key.Binding
	PrevMonth    key.Binding
	NextMonth    key.Binding
	SetDueDate   key.Binding
	ChangePasswd key.Binding
	SignOut      key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "right"),
		),
		MoveLeft: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "move card left"),
		),
		MoveRight: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "move card right"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move card up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move card down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open task"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Kanban: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "kanban"),
		),
		List: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "list"),
		),
		Calendar: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "calendar"),
		),
		Command: key.NewBinding(
			key.WithKeys(":", "ctrl+k"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "quick add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "undo"),
		),
		AddSubtask: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "add subtask"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename subtask"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload tasks"),
		),
		ToggleDone: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle subtask"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle theme"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter status"),
		),
		CyclePrio: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "filter priority"),
		),
		PrevMonth: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous month"),
		),
		NextMonth: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next month"),
		),
		SetDueDate: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add on day"),
		),
		ChangePasswd: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "change password"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "sign out"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.New, k.Select, k.Delete, k.Undo,
		k.Command, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Select, k.Back, k.Quit},
		{k.MoveUp, k.MoveDown, k.MoveLeft, k.MoveRight},
		{k.New, k.Edit, k.Delete, k.Undo, k.AddSubtask, k.ToggleDone, k.Rename},
		{k.Kanban, k.List, k.Calendar, k.CycleStatus, k.CyclePrio, k.PrevMonth, k.NextMonth, k.SetDueDate},
		{k.Command, k.Help, k.ToggleTheme, k.Reload, k.ChangePasswd, k.SignOut},
	}
}
