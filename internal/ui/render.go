package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
	"github.com/nhle/taskflow/internal/theme"
)

// PriorityBadge returns a short marker for high and low priority tasks.
// Normal priority renders nothing.
func PriorityBadge(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return theme.PriorityStyle(p).Render("!!")
	case model.PriorityLow:
		return theme.PriorityStyle(p).Render("↓")
	default:
		return ""
	}
}

// DueBadge renders the relative due label colored by urgency, or "".
func DueBadge(t model.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	label := projection.DueLabel(*t.DueDate, now)
	if t.DueDate.HasTime {
		label += " " + t.DueDate.Time.Format("15:04")
	}
	switch projection.DueStatus(t, now) {
	case projection.DueOverdue:
		if t.Status == model.StatusDone {
			return theme.DueDateStyle.Render(label)
		}
		return theme.OverdueStyle.Render(label)
	case projection.DueToday:
		return theme.DueTodayStyle.Render(label)
	default:
		return theme.DueDateStyle.Render(label)
	}
}

// Tags renders tags as "#a #b".
func Tags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "#" + t
	}
	return theme.TagStyle.Render(strings.Join(parts, " "))
}

// ProgressBadge renders subtask completion as "[1/3]", or "" without
// subtasks.
func ProgressBadge(p projection.Progress) string {
	if p.Total == 0 {
		return ""
	}
	style := theme.DueDateStyle
	if p.Completed == p.Total {
		style = lipgloss.NewStyle().Foreground(theme.ColorGreen)
	}
	return style.Render(fmt.Sprintf("[%d/%d]", p.Completed, p.Total))
}

// Join concatenates the non-empty parts with single spaces.
func Join(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Truncate shortens s to at most width cells, adding an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
