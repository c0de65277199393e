package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/tests/testutil"
)

func newTask(owner, text string, order float64) model.Task {
	return model.Task{
		OwnerID:  owner,
		Text:     text,
		Status:   model.StatusBacklog,
		Priority: model.PriorityNormal,
		Tags:     []string{},
		Order:    order,
	}
}

// next waits for the next snapshot on ch.
func next(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return store.Snapshot{}
	}
}

func texts(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func TestSQLiteInsertRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	due := model.NewDueDate(time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local)).At(15, 0)
	parent := "parent-1"
	task := newTask("u1", "Write report", 42.5)
	task.Tags = []string{"work", "work", "q1"}
	task.Priority = model.PriorityHigh
	task.DueDate = &due
	task.ParentID = &parent

	id, err := s.Insert(ctx, task)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "Write report", got.Text)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"work", "work", "q1"}, got.Tags)
	assert.Equal(t, 42.5, got.Order)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.HasTime)
	assert.True(t, due.Time.Equal(got.DueDate.Time))
	require.NotNil(t, got.ParentID)
	assert.Equal(t, "parent-1", *got.ParentID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteInsertKeepsProvidedID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	task := newTask("u1", "Restored", 1)
	task.ID = "fixed-id"
	task.CreatedAt = created

	id, err := s.Insert(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	got, err := s.GetTask(ctx, "fixed-id")
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestSQLiteInsertRequiresOwner(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.Insert(context.Background(), newTask("", "orphan", 1))
	assert.Error(t, err)
}

func TestSQLiteMergeAppliesPatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	due := model.NewDueDate(time.Now())
	task := newTask("u1", "Draft", 10)
	task.DueDate = &due
	id, err := s.Insert(ctx, task)
	require.NoError(t, err)

	text := "Final"
	status := model.StatusDone
	tags := []string{"a"}
	err = s.Merge(ctx, id, model.Patch{
		Text:         &text,
		Status:       &status,
		Tags:         &tags,
		ClearDueDate: true,
	})
	require.NoError(t, err)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Text)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, []string{"a"}, got.Tags)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, 10.0, got.Order)
}

func TestSQLiteWritesToMissingTaskReturnNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	text := "x"
	err := s.Merge(ctx, "missing", model.Patch{Text: &text})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.Delete(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteSubscribeDeliversOrderedSnapshots(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Insert(ctx, newTask("u1", "second", 20))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newTask("u2", "other owner", 5))
	require.NoError(t, err)

	ch, err := s.Subscribe(ctx, "u1")
	require.NoError(t, err)

	snap := next(t, ch)
	require.NoError(t, snap.Err)
	assert.Equal(t, []string{"second"}, texts(snap.Tasks))

	firstID, err := s.Insert(ctx, newTask("u1", "first", 10))
	require.NoError(t, err)
	snap = next(t, ch)
	assert.Equal(t, []string{"first", "second"}, texts(snap.Tasks))

	order := 30.0
	require.NoError(t, s.Merge(ctx, firstID, model.Patch{Order: &order}))
	snap = next(t, ch)
	assert.Equal(t, []string{"second", "first"}, texts(snap.Tasks))

	require.NoError(t, s.Delete(ctx, firstID))
	snap = next(t, ch)
	assert.Equal(t, []string{"second"}, texts(snap.Tasks))
}

func TestSQLiteSubscribeCoalescesUnreadSnapshots(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, "u1")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := s.Insert(ctx, newTask("u1", "t", float64(i)))
		require.NoError(t, err)
	}

	snap := next(t, ch)
	assert.Len(t, snap.Tasks, 3)
}

func TestSQLiteSubscribeClosesOnCancel(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Subscribe(ctx, "u1")
	require.NoError(t, err)
	next(t, ch)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSQLiteUsers(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, model.User{Email: "ann@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)

	_, err = s.CreateUser(ctx, model.User{Email: "ANN@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	got, err := s.GetUserByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "new-hash"))
	require.NoError(t, s.SetUserDisabled(ctx, user.ID, true))

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.True(t, got.Disabled)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
