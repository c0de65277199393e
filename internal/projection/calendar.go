package projection

import (
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// CalendarCells is the number of cells in a month grid: six full weeks.
const CalendarCells = 42

// Cell is one day of the month grid.
type Cell struct {
	Date       time.Time    `json:"date"`
	OtherMonth bool         `json:"otherMonth"`
	Today      bool         `json:"today"`
	Tasks      []model.Task `json:"tasks"`
}

// Calendar is the month projection.
type Calendar struct {
	Month time.Time `json:"month"`
	Cells []Cell    `json:"cells"`
}

// Title returns the header text, e.g. "October 2026".
func (c Calendar) Title() string {
	return c.Month.Format("January 2006")
}

// MonthStart returns midnight of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// BuildCalendar lays out the month containing month as a 42-cell grid
// starting on the Sunday on or before the 1st. Each cell lists the
// top-level tasks due that day, including cells of adjacent months.
func BuildCalendar(tasks []model.Task, month, today time.Time) Calendar {
	first := MonthStart(month)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := dayKey(today)

	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.IsSubtask() || t.DueDate == nil {
			continue
		}
		key := dayKey(t.DueDate.Day())
		byDay[key] = append(byDay[key], t)
	}

	cal := Calendar{Month: first, Cells: make([]Cell, CalendarCells)}
	for i := range cal.Cells {
		date := start.AddDate(0, 0, i)
		key := dayKey(date)
		cal.Cells[i] = Cell{
			Date:       date,
			OtherMonth: date.Month() != first.Month(),
			Today:      key == todayKey,
			Tasks:      byDay[key],
		}
	}
	return cal
}

func dayKey(t time.Time) string {
	return t.Format(model.DateLayout)
}
