package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// taskRow is the SQL shape of a task document.
type taskRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Text        string         `db:"text"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	Priority    string         `db:"priority"`
	Tags        string         `db:"tags"`
	DueDate     sql.NullString `db:"due_date"`
	ParentID    sql.NullString `db:"parent_id"`
	SortOrder   float64        `db:"sort_order"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Insert stores a new task document. Generates a UUID if ID is empty.
func (s *SQLiteStore) Insert(ctx context.Context, task model.Task) (string, error) {
	if task.OwnerID == "" {
		return "", fmt.Errorf("task owner must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.StatusBacklog
	}
	if task.Priority == "" {
		task.Priority = model.PriorityNormal
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, text, description, status, priority,
			tags, due_date, parent_id, sort_order,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Text, task.Description,
		string(task.Status), string(task.Priority),
		tags, dueDateValue(task.DueDate), parentValue(task.ParentID), task.Order,
		task.CreatedAt.UTC(), task.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting task: %w", err)
	}

	s.notify(ctx, task.OwnerID)
	return task.ID, nil
}

// Merge updates the fields set in patch and refreshes updated_at.
func (s *SQLiteStore) Merge(ctx context.Context, id string, patch model.Patch) error {
	sets, args, err := patchAssignments(patch)
	if err != nil {
		return err
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	owner, err := s.ownerOf(ctx, id)
	if err != nil {
		return err
	}

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.notify(ctx, owner)
	return nil
}

// Delete removes a single task by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	owner, err := s.ownerOf(ctx, id)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.notify(ctx, owner)
	return nil
}

// GetTask retrieves a single task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var row taskRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	task, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ownerOf returns the owner of task id.
func (s *SQLiteStore) ownerOf(ctx context.Context, id string) (string, error) {
	var owner string
	err := s.db.GetContext(ctx, &owner, "SELECT user_id FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("looking up task %s: %w", id, err)
	}
	return owner, nil
}

// listTasks returns every task of ownerID ordered by sort_order.
func (s *SQLiteStore) listTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks WHERE user_id = ? ORDER BY sort_order ASC, created_at ASC",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// patchAssignments builds the SET clause for a patch.
func patchAssignments(p model.Patch) ([]string, []interface{}, error) {
	var sets []string
	var args []interface{}

	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *p.Text)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*p.Priority))
	}
	if p.Tags != nil {
		tags, err := encodeTags(*p.Tags)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if p.DueDate != nil || p.ClearDueDate {
		sets = append(sets, "due_date = ?")
		args = append(args, dueDateValue(p.DueDate))
	}
	if p.ParentID != nil || p.ClearParent {
		sets = append(sets, "parent_id = ?")
		args = append(args, parentValue(p.ParentID))
	}
	if p.Order != nil {
		sets = append(sets, "sort_order = ?")
		args = append(args, *p.Order)
	}
	return sets, args, nil
}

func (r taskRow) toModel() (model.Task, error) {
	t := model.Task{
		ID:          r.ID,
		OwnerID:     r.UserID,
		Text:        r.Text,
		Description: r.Description,
		Status:      model.Status(r.Status),
		Priority:    model.Priority(r.Priority),
		Tags:        []string{},
		Order:       r.SortOrder,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &t.Tags); err != nil {
			return model.Task{}, fmt.Errorf("unmarshaling tags of task %s: %w", r.ID, err)
		}
	}
	if r.DueDate.Valid && r.DueDate.String != "" {
		due, err := model.ParseDueDate(r.DueDate.String, time.Local)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
		t.DueDate = &due
	}
	if r.ParentID.Valid && r.ParentID.String != "" {
		parent := r.ParentID.String
		t.ParentID = &parent
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshaling tags: %w", err)
	}
	return string(b), nil
}

func dueDateValue(d *model.DueDate) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func parentValue(id *string) interface{} {
	if id == nil || *id == "" {
		return nil
	}
	return *id
}
