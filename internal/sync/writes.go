package sync

import (
	"context"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/undo"
)

// Create inserts a task built from draft for the session owner.
func (s *Session) Create(ctx context.Context, draft model.Draft) (string, error) {
	owner := s.Owner()
	if owner == "" {
		return "", ErrNoSession
	}
	if !s.Online() {
		notify.Warning(s.notify, "Cannot create task while offline")
		return "", ErrOffline
	}

	task := draft.Task(owner, s.defaultOrder())
	id, err := s.store.Insert(ctx, task)
	if err != nil {
		s.log.WithError(err).Error("creating task")
		notify.Error(s.notify, "Error creating task: "+err.Error(), true)
		return "", &RemoteError{Op: "create", Err: err}
	}

	s.record(undo.CreateAction{TaskID: id})
	notify.Success(s.notify, "Task created successfully")
	return id, nil
}

// Update merges patch into task id. The prior state is recorded for undo
// when the task is in the local collection.
func (s *Session) Update(ctx context.Context, id string, patch model.Patch) error {
	if s.Owner() == "" {
		return ErrNoSession
	}
	if !s.Online() {
		notify.Warning(s.notify, "Cannot update task while offline")
		return ErrOffline
	}

	prior, known := s.Task(id)
	if err := s.store.Merge(ctx, id, patch); err != nil {
		s.log.WithError(err).WithField("task", id).Error("updating task")
		notify.Error(s.notify, "Error updating task: "+err.Error(), true)
		return &RemoteError{Op: "update", TaskID: id, Err: err}
	}

	if known {
		s.record(undo.UpdateAction{TaskID: id, Prior: prior})
	}
	return nil
}

// Delete removes task id after its locally known subtasks, one at a time.
// A failure part way leaves the earlier deletions in place.
func (s *Session) Delete(ctx context.Context, id string) error {
	if s.Owner() == "" {
		return ErrNoSession
	}
	if !s.Online() {
		notify.Warning(s.notify, "Cannot delete task while offline")
		return ErrOffline
	}

	task, known := s.Task(id)
	var subtasks []model.Task
	for _, t := range s.Tasks().Tasks {
		if t.ParentID != nil && *t.ParentID == id {
			subtasks = append(subtasks, t.Clone())
		}
	}

	for _, sub := range subtasks {
		if err := s.store.Delete(ctx, sub.ID); err != nil {
			return s.deleteFailed(id, err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.deleteFailed(id, err)
	}

	if known {
		s.record(undo.DeleteAction{Task: task, Subtasks: subtasks})
	}
	notify.Success(s.notify, "Task deleted")
	return nil
}

func (s *Session) deleteFailed(id string, err error) error {
	s.log.WithError(err).WithField("task", id).Error("deleting task")
	notify.Error(s.notify, "Error deleting task: "+err.Error(), true)
	return &RemoteError{Op: "delete", TaskID: id, Err: err}
}
