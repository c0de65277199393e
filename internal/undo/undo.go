// Package undo holds the single most recent reversible task operation.
package undo

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/nhle/taskflow/internal/model"
)

// Action is a reversible operation. The concrete types are CreateAction,
// UpdateAction and DeleteAction.
type Action interface {
	isAction()
}

// CreateAction records a task creation; reversing it deletes the task.
type CreateAction struct {
	TaskID string
}

// UpdateAction records an update; Prior is the full task before it.
type UpdateAction struct {
	TaskID string
	Prior  model.Task
}

// DeleteAction records a deletion together with the subtasks removed by it.
type DeleteAction struct {
	Task     model.Task
	Subtasks []model.Task
}

func (CreateAction) isAction() {}
func (UpdateAction) isAction() {}
func (DeleteAction) isAction() {}

// Outcome is the result of an undo request.
type Outcome int

const (
	// OutcomeEmpty means nothing was recorded.
	OutcomeEmpty Outcome = iota
	// OutcomeOffline means the target was offline; the action is kept.
	OutcomeOffline
	// OutcomeReverted means the action was reversed.
	OutcomeReverted
	// OutcomeFailed means reversal failed; the action is gone.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeOffline:
		return "offline"
	case OutcomeReverted:
		return "reverted"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Target is where reversals are written. Its writes must not record new
// undo actions.
type Target interface {
	Online() bool
	Insert(ctx context.Context, task model.Task) (string, error)
	Merge(ctx context.Context, id string, patch model.Patch) error
	Delete(ctx context.Context, id string) error
}

// Buffer holds at most one Action. Recording replaces any previous one.
type Buffer struct {
	mu   gosync.Mutex
	last Action
}

// Record stores a, discarding whatever was recorded before.
func (b *Buffer) Record(a Action) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = a
}

// Peek returns the recorded action without consuming it.
func (b *Buffer) Peek() (Action, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.last != nil
}

// Clear drops the recorded action.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = nil
}

// Undo reverses the recorded action against t. The slot is emptied before
// any write is issued, so a failed reversal cannot be retried.
func (b *Buffer) Undo(ctx context.Context, t Target) (Action, Outcome, error) {
	b.mu.Lock()
	if b.last == nil {
		b.mu.Unlock()
		return nil, OutcomeEmpty, nil
	}
	if !t.Online() {
		a := b.last
		b.mu.Unlock()
		return a, OutcomeOffline, nil
	}
	a := b.last
	b.last = nil
	b.mu.Unlock()

	if err := revert(ctx, t, a); err != nil {
		return a, OutcomeFailed, err
	}
	return a, OutcomeReverted, nil
}

func revert(ctx context.Context, t Target, a Action) error {
	switch a := a.(type) {
	case CreateAction:
		if err := t.Delete(ctx, a.TaskID); err != nil {
			return fmt.Errorf("removing created task %s: %w", a.TaskID, err)
		}
	case UpdateAction:
		if err := t.Merge(ctx, a.TaskID, model.PatchFromTask(a.Prior)); err != nil {
			return fmt.Errorf("restoring task %s: %w", a.TaskID, err)
		}
	case DeleteAction:
		if _, err := t.Insert(ctx, a.Task.Clone()); err != nil {
			return fmt.Errorf("restoring deleted task %s: %w", a.Task.ID, err)
		}
		for _, sub := range a.Subtasks {
			if _, err := t.Insert(ctx, sub.Clone()); err != nil {
				return fmt.Errorf("restoring subtask %s: %w", sub.ID, err)
			}
		}
	default:
		return fmt.Errorf("unknown undo action %T", a)
	}
	return nil
}

// Describe returns the notification text for a recorded action.
func Describe(a Action) string {
	switch a.(type) {
	case CreateAction:
		return "Task created"
	case UpdateAction:
		return "Task updated"
	case DeleteAction:
		return "Task deleted"
	default:
		return ""
	}
}

// DescribeReverted returns the notification text after a reversal.
func DescribeReverted(a Action) string {
	switch a.(type) {
	case CreateAction:
		return "Undo: Task removed"
	case UpdateAction:
		return "Undo: Changes reverted"
	case DeleteAction:
		return "Undo: Task restored"
	default:
		return ""
	}
}
