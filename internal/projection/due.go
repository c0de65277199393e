package projection

import (
	"fmt"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// DueState classifies a due date relative to today.
type DueState int

const (
	DueNone DueState = iota
	DueUpcoming
	DueToday
	DueOverdue
)

// DueStatus reports whether the task is overdue, due today or upcoming.
func DueStatus(t model.Task, now time.Time) DueState {
	if t.DueDate == nil {
		return DueNone
	}
	day := t.DueDate.Day()
	today := model.NewDueDate(now).Day()
	switch {
	case day.Before(today):
		return DueOverdue
	case day.Equal(today):
		return DueToday
	default:
		return DueUpcoming
	}
}

// DueLabel renders a short relative label for a due date: "Today",
// "Tomorrow", "Yesterday", "3 days ago", "In 4 days" or "Jan 2" beyond a
// week out. Day differences count calendar days in now's location.
func DueLabel(d model.DueDate, now time.Time) string {
	days := calendarDays(now, d.Time)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days < 0:
		return fmt.Sprintf("%d days ago", -days)
	case days < 7:
		return fmt.Sprintf("In %d days", days)
	default:
		return d.Time.Format("Jan 2")
	}
}

// calendarDays counts whole calendar days from a to b, ignoring time of
// day and DST shifts.
func calendarDays(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
