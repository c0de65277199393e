package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// CommandID names a palette command.
type CommandID string

// Palette commands.
const (
	CommandNewTask     CommandID = "new-task"
	CommandKanban      CommandID = "kanban"
	CommandList        CommandID = "list"
	CommandCalendar    CommandID = "calendar"
	CommandToggleTheme CommandID = "toggle-theme"
	CommandUndo        CommandID = "undo"
)

// Command is one palette entry.
type Command struct {
	ID          CommandID
	Title       string
	Description string
	Shortcut    string
}

// Commands is the full palette in display order.
var Commands = []Command{
	{ID: CommandNewTask, Title: "New Task", Description: "Create a new task", Shortcut: "n"},
	{ID: CommandKanban, Title: "Kanban View", Description: "Switch to Kanban board", Shortcut: "1"},
	{ID: CommandList, Title: "List View", Description: "Switch to List view", Shortcut: "2"},
	{ID: CommandCalendar, Title: "Calendar View", Description: "Switch to Calendar view", Shortcut: "3"},
	{ID: CommandToggleTheme, Title: "Toggle Theme", Description: "Switch between dark and light mode", Shortcut: "t"},
	{ID: CommandUndo, Title: "Undo", Description: "Undo last action", Shortcut: "ctrl+z"},
}

type commandSource []Command

func (s commandSource) String(i int) string {
	return s[i].Title + " " + s[i].Description
}

func (s commandSource) Len() int { return len(s) }

// FilterCommands returns the commands matching query, best match first.
// An empty query returns every command in display order.
func FilterCommands(query string) []Command {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]Command(nil), Commands...)
	}
	matches := fuzzy.FindFrom(query, commandSource(Commands))
	out := make([]Command, len(matches))
	for i, m := range matches {
		out[i] = Commands[m.Index]
	}
	return out
}

// Execute runs the palette command id. CommandNewTask has no controller
// effect; the presentation layer focuses its quick-add input.
func (c *Controller) Execute(ctx context.Context, id CommandID) error {
	switch id {
	case CommandNewTask:
		return nil
	case CommandKanban:
		c.SwitchView(ViewKanban)
	case CommandList:
		c.SwitchView(ViewList)
	case CommandCalendar:
		c.SwitchView(ViewCalendar)
	case CommandToggleTheme:
		_, err := c.ToggleTheme()
		return err
	case CommandUndo:
		_, err := c.Undo(ctx)
		return err
	default:
		return fmt.Errorf("unknown command %q", id)
	}
	return nil
}
