// Package projection derives the read-only views rendered by the
// presentation layer from the flat task collection: the status board, the
// filtered list and the month calendar. Every function is pure and returns
// fresh slices; the input collection is never modified.
package projection

import (
	"sort"

	"github.com/nhle/taskflow/internal/model"
)

// Progress is the subtask completion of a parent card.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Card is a top-level task on the board with its subtask progress.
type Card struct {
	Task     model.Task `json:"task"`
	Progress Progress   `json:"progress"`
}

// Column holds the cards of one status, sorted ascending by order.
type Column struct {
	Status model.Status `json:"status"`
	Cards  []Card       `json:"cards"`
}

// Board is the kanban projection: one column per status in column order.
type Board struct {
	Columns []Column `json:"columns"`
}

// Column returns the column for status, or an empty one.
func (b Board) Column(status model.Status) Column {
	for _, c := range b.Columns {
		if c.Status == status {
			return c
		}
	}
	return Column{Status: status}
}

// BuildBoard groups the top-level tasks by status.
func BuildBoard(tasks []model.Task) Board {
	progress := subtaskProgress(tasks)

	board := Board{Columns: make([]Column, len(model.Statuses))}
	index := make(map[model.Status]int, len(model.Statuses))
	for i, st := range model.Statuses {
		board.Columns[i] = Column{Status: st, Cards: []Card{}}
		index[st] = i
	}

	for _, t := range tasks {
		if t.IsSubtask() {
			continue
		}
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		board.Columns[i].Cards = append(board.Columns[i].Cards, Card{
			Task:     t,
			Progress: progress[t.ID],
		})
	}

	for i := range board.Columns {
		cards := board.Columns[i].Cards
		sort.SliceStable(cards, func(a, b int) bool {
			return cards[a].Task.Order < cards[b].Task.Order
		})
	}
	return board
}

// Subtasks returns the children of parentID sorted by order.
func Subtasks(tasks []model.Task, parentID string) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.ParentID != nil && *t.ParentID == parentID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func subtaskProgress(tasks []model.Task) map[string]Progress {
	progress := make(map[string]Progress)
	for _, t := range tasks {
		if !t.IsSubtask() {
			continue
		}
		p := progress[*t.ParentID]
		p.Total++
		if t.Status == model.StatusDone {
			p.Completed++
		}
		progress[*t.ParentID] = p
	}
	return progress
}
