package taskform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

func TestStartEditLoadsFields(t *testing.T) {
	due := model.NewDueDate(time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local))
	m := New(80, 30)
	m.StartEdit(model.Task{
		ID:       "t1",
		Text:     "Write report",
		Status:   model.StatusToday,
		Priority: model.PriorityHigh,
		Tags:     []string{"work", "q1"},
		DueDate:  &due,
	})

	require.True(t, m.Editing())
	assert.Equal(t, "Write report", m.fb.text)
	assert.Equal(t, "work, q1", m.fb.tags)
	assert.Equal(t, "2024-03-09", m.fb.dueDate)
	assert.Contains(t, m.View(), "Edit Task")
}

func TestStartCreateResetsBindings(t *testing.T) {
	m := New(80, 30)
	m.StartEdit(model.Task{ID: "t1", Text: "old", Status: model.StatusDone})

	m.StartCreate(model.StatusInProgress)
	assert.False(t, m.Editing())
	assert.Empty(t, m.fb.text)
	assert.Equal(t, model.StatusInProgress, m.fb.status)
	assert.Equal(t, model.PriorityNormal, m.fb.priority)

	m.StartCreate("bogus")
	assert.Equal(t, model.StatusBacklog, m.fb.status)
}

func TestValidators(t *testing.T) {
	assert.Error(t, validateRequired("Title")("  "))
	assert.NoError(t, validateRequired("Title")("x"))

	assert.NoError(t, validateOptionalDate(""))
	assert.NoError(t, validateOptionalDate("2024-02-29"))
	assert.Error(t, validateOptionalDate("2024-02-30"))
	assert.Error(t, validateOptionalDate("tomorrow"))
}
