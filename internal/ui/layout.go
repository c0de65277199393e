package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	InputHeight     int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions. The
// header, quick-add line and status bar take one row each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		InputHeight:     1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, quick-add line and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.InputHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top header bar with a title and the view
// switcher. While offline the right side shows a warning banner instead.
func (l Layout) RenderHeader(title, views string, offline bool) string {
	titleRendered := theme.HeaderStyle.Render(title)

	var right string
	if offline {
		right = theme.OfflineBannerStyle.Render("OFFLINE: writes disabled")
	} else {
		right = theme.HeaderStyle.Align(lipgloss.Right).Render(views)
	}

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		right,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints))
}

// RenderNotification renders n in the status bar, replacing the hints.
func (l Layout) RenderNotification(n model.Notification) string {
	text := n.Message
	if n.Undo {
		text += "  (u to undo)"
	}
	if n.Retry {
		text += "  (ctrl+r to reload)"
	}
	style := theme.NotificationStyle(n.Kind)
	return l.fill(style, style.Render(text))
}

func (l Layout) fill(style lipgloss.Style, rendered string) string {
	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, quick-add line, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	input string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		input,
		content,
		statusBar,
	)
}
