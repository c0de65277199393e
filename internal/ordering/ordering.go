// Package ordering computes fractional sort keys for tasks moved within or
// between board columns. Only the moved task ever receives a new key.
package ordering

import (
	"sort"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

// Gap constants for appends and rebalancing.
const (
	AppendGap    = 1000.0
	RebalanceGap = 1000.0
)

// Seed returns the order assigned to the first task of an empty column
// and to tasks created without an explicit order: now in Unix milliseconds.
func Seed(now time.Time) float64 {
	return float64(now.UnixMilli())
}

// Compute returns the order for a task inserted at index into column,
// which must already be sorted ascending by order and exclude subtasks.
func Compute(column []model.Task, index int, now time.Time) float64 {
	n := len(column)
	switch {
	case n == 0:
		return Seed(now)
	case index <= 0:
		return column[0].Order / 2
	case index >= n:
		return column[n-1].Order + AppendGap
	default:
		return (column[index-1].Order + column[index].Order) / 2
	}
}

// Column returns the top-level tasks with the given status sorted by
// order, leaving out excludeID so a dragged task does not count itself.
func Column(tasks []model.Task, status model.Status, excludeID string) []model.Task {
	column := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != status || t.IsSubtask() || t.ID == excludeID {
			continue
		}
		column = append(column, t)
	}
	sort.SliceStable(column, func(i, j int) bool {
		return column[i].Order < column[j].Order
	})
	return column
}

// Exhausted reports whether inserting at index can no longer produce a
// key strictly between its neighbours because float precision ran out.
// An index at either end of a non-empty column is never exhausted except
// for a prepend before a non-positive key, where halving does not move
// the value below it.
func Exhausted(column []model.Task, index int, now time.Time) bool {
	n := len(column)
	if n == 0 || index >= n {
		return false
	}
	v := Compute(column, index, now)
	if index <= 0 {
		return !(v < column[0].Order)
	}
	return !(column[index-1].Order < v && v < column[index].Order)
}

// Placement is a new order for one task produced by Rebalance.
type Placement struct {
	TaskID string
	Order  float64
}

// Rebalance spaces the column evenly, RebalanceGap apart starting at
// RebalanceGap, preserving the existing sequence. Tasks already at their
// target order are omitted so only changed keys are written.
func Rebalance(column []model.Task) []Placement {
	var out []Placement
	for i, t := range column {
		want := RebalanceGap * float64(i+1)
		if t.Order == want {
			continue
		}
		out = append(out, Placement{TaskID: t.ID, Order: want})
	}
	return out
}
