package projection

import (
	"sort"

	"github.com/nhle/taskflow/internal/model"
)

// ListFilter narrows the list projection. Empty fields mean "all".
type ListFilter struct {
	Status   model.Status   `json:"status,omitempty"`
	Priority model.Priority `json:"priority,omitempty"`
}

// Matches reports whether t passes the filter.
func (f ListFilter) Matches(t model.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// BuildList returns the filtered top-level tasks sorted by Compare.
func BuildList(tasks []model.Task, filter ListFilter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsSubtask() || !filter.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return out
}

// Compare orders tasks for the list view: tasks with a due date first,
// then by due date and time, then by priority rank, then by order.
func Compare(a, b model.Task) int {
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Time.Compare(b.DueDate.Time); c != 0 {
			return c
		}
	}

	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	default:
		return 0
	}
}
