package undo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

type call struct {
	op    string
	id    string
	task  model.Task
	patch model.Patch
}

type recorder struct {
	offline bool
	err     error
	calls   []call
}

func (r *recorder) Online() bool { return !r.offline }

func (r *recorder) Insert(_ context.Context, task model.Task) (string, error) {
	r.calls = append(r.calls, call{op: "insert", id: task.ID, task: task})
	return task.ID, r.err
}

func (r *recorder) Merge(_ context.Context, id string, patch model.Patch) error {
	r.calls = append(r.calls, call{op: "merge", id: id, patch: patch})
	return r.err
}

func (r *recorder) Delete(_ context.Context, id string) error {
	r.calls = append(r.calls, call{op: "delete", id: id})
	return r.err
}

func TestUndoEmpty(t *testing.T) {
	var b Buffer
	r := &recorder{}

	a, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Equal(t, OutcomeEmpty, outcome)
	assert.Empty(t, r.calls)
}

func TestRecordOverwrites(t *testing.T) {
	var b Buffer
	b.Record(CreateAction{TaskID: "a"})
	b.Record(CreateAction{TaskID: "b"})

	r := &recorder{}
	a, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome)
	assert.Equal(t, CreateAction{TaskID: "b"}, a)
	require.Len(t, r.calls, 1)
	assert.Equal(t, call{op: "delete", id: "b"}, r.calls[0])
}

func TestUndoIsSingleShot(t *testing.T) {
	var b Buffer
	b.Record(CreateAction{TaskID: "a"})
	r := &recorder{}

	_, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome)

	_, outcome, err = b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, outcome)
	assert.Len(t, r.calls, 1)
}

func TestUndoOfflineKeepsAction(t *testing.T) {
	var b Buffer
	b.Record(CreateAction{TaskID: "a"})
	r := &recorder{offline: true}

	_, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOffline, outcome)
	assert.Empty(t, r.calls)

	_, ok := b.Peek()
	assert.True(t, ok)
}

func TestUndoUpdateWritesPriorSnapshot(t *testing.T) {
	var b Buffer
	prior := model.Task{
		ID:       "t1",
		Text:     "before",
		Status:   model.StatusToday,
		Priority: model.PriorityHigh,
		Tags:     []string{"x"},
		Order:    5,
	}
	b.Record(UpdateAction{TaskID: "t1", Prior: prior})
	r := &recorder{}

	_, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome)
	require.Len(t, r.calls, 1)

	c := r.calls[0]
	assert.Equal(t, "merge", c.op)
	assert.Equal(t, "t1", c.id)
	restored := c.patch.Apply(model.Task{ID: "t1", Text: "after", Status: model.StatusDone})
	assert.Equal(t, prior, restored)
}

func TestUndoDeleteRestoresTaskThenSubtasks(t *testing.T) {
	var b Buffer
	parent := "p"
	b.Record(DeleteAction{
		Task: model.Task{ID: "p", Text: "parent"},
		Subtasks: []model.Task{
			{ID: "s1", ParentID: &parent},
			{ID: "s2", ParentID: &parent},
		},
	})
	r := &recorder{}

	_, outcome, err := b.Undo(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, outcome)

	var ids []string
	for _, c := range r.calls {
		assert.Equal(t, "insert", c.op)
		ids = append(ids, c.id)
	}
	assert.Equal(t, []string{"p", "s1", "s2"}, ids)
}

func TestUndoFailureConsumesAction(t *testing.T) {
	var b Buffer
	b.Record(CreateAction{TaskID: "a"})
	r := &recorder{err: errors.New("boom")}

	_, outcome, err := b.Undo(context.Background(), r)
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	_, ok := b.Peek()
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Task created", Describe(CreateAction{}))
	assert.Equal(t, "Task updated", Describe(UpdateAction{}))
	assert.Equal(t, "Task deleted", Describe(DeleteAction{}))
	assert.Equal(t, "Undo: Task removed", DescribeReverted(CreateAction{}))
	assert.Equal(t, "Undo: Changes reverted", DescribeReverted(UpdateAction{}))
	assert.Equal(t, "Undo: Task restored", DescribeReverted(DeleteAction{}))
}
