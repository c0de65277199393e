package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/ordering"
	"github.com/nhle/taskflow/internal/projection"
)

// shortIDLen is how many id characters the tables show. Commands accept
// any unique prefix.
const shortIDLen = 8

// withController runs fn against a controller subscribed to the signed-in
// user's tasks.
func withController(ctx context.Context, o *options, fn func(*app.Controller) error) error {
	e, err := openEnv(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	n := notify.NewLogger(e.log)
	id, err := e.signedIn(ctx, e.gate(n))
	if err != nil {
		return err
	}

	session := e.session(n)
	if err := startSession(ctx, session, id.UserID); err != nil {
		return err
	}
	defer session.Stop()

	return fn(e.controller(session, n))
}

func newAddCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Quick-add a task",
		Long: `Quick-add a task. Inline tokens are extracted from the text:
  #tag                      adds a tag
  !high !low                sets the priority
  today tomorrow in N days  sets the due date
  3pm 15:30                 sets the due time once a date is given`,
		Example: `  taskflow add "Pay rent tomorrow 9am #home !high"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), o, func(ctrl *app.Controller) error {
				id, err := ctrl.QuickAdd(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				if id == "" {
					return fmt.Errorf("%w: task text is empty", app.ErrInvalidInput)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s created.\n", shortID(id))
				return nil
			})
		},
	}
}

func newListCmd(o *options) *cobra.Command {
	var status, priority string
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List top-level tasks by due date and priority",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := projection.ListFilter{
				Status:   model.Status(status),
				Priority: model.Priority(priority),
			}
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("%w: status %q", app.ErrInvalidInput, status)
			}
			if filter.Priority != "" && !filter.Priority.Valid() {
				return fmt.Errorf("%w: priority %q", app.ErrInvalidInput, priority)
			}

			return withController(cmd.Context(), o, func(ctrl *app.Controller) error {
				ctrl.SetFilter(filter)
				vm := ctrl.View()
				renderList(cmd.OutOrStdout(), vm.List, vm.Now)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (backlog, today, inprogress, done)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (high, normal, low)")
	return cmd
}

func newBoardCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Print the kanban board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), o, func(ctrl *app.Controller) error {
				renderBoard(cmd.OutOrStdout(), ctrl.View().Board)
				return nil
			})
		},
	}
}

func newMoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to the bottom of a status column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.Status(args[1])
			return withController(cmd.Context(), o, func(ctrl *app.Controller) error {
				id, err := resolveID(ctrl, args[0])
				if err != nil {
					return err
				}
				column := ordering.Column(ctrl.Session().Tasks().Tasks, status, id)
				if err := ctrl.Move(cmd.Context(), id, status, len(column)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s moved to %s.\n", shortID(id), status.Label())
				return nil
			})
		},
	}
}

func newRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Delete a task and its subtasks",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), o, func(ctrl *app.Controller) error {
				id, err := resolveID(ctrl, args[0])
				if err != nil {
					return err
				}
				if err := ctrl.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s deleted.\n", shortID(id))
				return nil
			})
		},
	}
}

// resolveID expands a unique id prefix to the full task id.
func resolveID(ctrl *app.Controller, prefix string) (string, error) {
	var match string
	for _, t := range ctrl.Session().Tasks().Tasks {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if t.ID == prefix {
			return t.ID, nil
		}
		if match != "" {
			return "", fmt.Errorf("%w: id prefix %q is ambiguous", app.ErrInvalidInput, prefix)
		}
		match = t.ID
	}
	if match == "" {
		return "", fmt.Errorf("task %s: %w", prefix, app.ErrUnknownTask)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func renderList(w io.Writer, tasks []model.Task, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleDouble)
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{
		text.FgGreen.Sprintf("ID"), text.FgGreen.Sprintf("%s", text.Bold.Sprintf("Task")),
		text.FgGreen.Sprintf("Status"),
		text.FgGreen.Sprintf("Priority"),
		text.FgGreen.Sprintf("Due"),
		text.FgGreen.Sprintf("Tags"),
	})

	for _, task := range tasks {
		t.AppendRow(table.Row{
			shortID(task.ID),
			task.Text,
			colorStatus(task.Status),
			colorPriority(task.Priority),
			dueCell(task, now),
			strings.Join(task.Tags, ", "),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(tasks))})
	t.Render()
}

func renderBoard(w io.Writer, board projection.Board) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleDouble)

	header := table.Row{}
	rows := 0
	for _, col := range board.Columns {
		header = append(header, text.FgGreen.Sprintf("%s (%d)", col.Status.Label(), len(col.Cards)))
		if len(col.Cards) > rows {
			rows = len(col.Cards)
		}
	}
	t.AppendHeader(header)

	for i := 0; i < rows; i++ {
		row := table.Row{}
		for _, col := range board.Columns {
			if i >= len(col.Cards) {
				row = append(row, "")
				continue
			}
			row = append(row, cardCell(col.Cards[i]))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func cardCell(c projection.Card) string {
	cell := shortID(c.Task.ID) + " " + c.Task.Text
	if c.Progress.Total > 0 {
		cell += fmt.Sprintf(" [%d/%d]", c.Progress.Completed, c.Progress.Total)
	}
	return cell
}

func dueCell(t model.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	label := projection.DueLabel(*t.DueDate, now)
	if projection.DueStatus(t, now) == projection.DueOverdue {
		return text.FgHiRed.Sprintf("%s", label)
	}
	return label
}

func colorStatus(s model.Status) string {
	switch s {
	case model.StatusBacklog:
		return text.FgHiBlack.Sprintf("%s", s.Label())
	case model.StatusToday:
		return text.FgHiBlue.Sprintf("%s", s.Label())
	case model.StatusInProgress:
		return text.FgHiYellow.Sprintf("%s", s.Label())
	case model.StatusDone:
		return text.FgHiGreen.Sprintf("%s", s.Label())
	default:
		return string(s)
	}
}

func colorPriority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return text.FgHiRed.Sprintf("%s", p)
	case model.PriorityLow:
		return text.FgHiBlack.Sprintf("%s", p)
	default:
		return string(p)
	}
}
