package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nhle/taskflow/internal/model"
)

func TestMergeUpdateSetsAndUnsets(t *testing.T) {
	text := "renamed"
	order := 7.5
	update := mergeUpdate(model.Patch{
		Text:         &text,
		Order:        &order,
		ClearDueDate: true,
		ClearParent:  true,
	})

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "renamed", set["text"])
	assert.Equal(t, 7.5, set["order"])
	assert.Contains(t, set, "updatedAt")
	assert.NotContains(t, set, "status")

	unset, ok := update["$unset"].(bson.M)
	require.True(t, ok)
	assert.Contains(t, unset, "dueDate")
	assert.Contains(t, unset, "parentId")
}

func TestMergeUpdateWithoutClearsHasNoUnset(t *testing.T) {
	status := model.StatusToday
	update := mergeUpdate(model.Patch{Status: &status})

	assert.NotContains(t, update, "$unset")
	assert.Equal(t, "today", update["$set"].(bson.M)["status"])
}

func TestTaskDocRoundTrip(t *testing.T) {
	due := model.NewDueDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))
	parent := "p1"
	task := model.Task{
		ID:       "t1",
		OwnerID:  "u1",
		Text:     "Sub",
		Status:   model.StatusInProgress,
		Priority: model.PriorityLow,
		Tags:     []string{"x"},
		DueDate:  &due,
		ParentID: &parent,
		Order:    3,
	}

	got, err := docFromModel(task).toModel()
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.OwnerID, got.OwnerID)
	assert.Equal(t, task.Status, got.Status)
	assert.Equal(t, task.Tags, got.Tags)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-05-01", got.DueDate.String())
	require.NotNil(t, got.ParentID)
	assert.Equal(t, "p1", *got.ParentID)
}

func TestDocFromModelDefaults(t *testing.T) {
	d := docFromModel(model.Task{ID: "t", OwnerID: "u"})
	assert.Equal(t, "backlog", d.Status)
	assert.Equal(t, "normal", d.Priority)
	assert.Equal(t, []string{}, d.Tags)
	assert.Nil(t, d.DueDate)
	assert.Nil(t, d.ParentID)
}

func TestChangeEventDecodesDocumentKey(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"operationType": "delete",
		"documentKey":   bson.M{"_id": "t1"},
		"ns":            bson.M{"db": "taskflow", "coll": "tasks"},
	})
	require.NoError(t, err)

	var ev changeEvent
	require.NoError(t, bson.Unmarshal(raw, &ev))
	assert.Equal(t, "delete", ev.OperationType)
	assert.Equal(t, "t1", ev.DocumentKey.ID)
}

func TestChangeEventAffectsOnlyKnownDeletes(t *testing.T) {
	known := taskIDs([]model.Task{{ID: "mine"}})

	del := func(id string) changeEvent {
		var ev changeEvent
		ev.OperationType = "delete"
		ev.DocumentKey.ID = id
		return ev
	}
	assert.True(t, del("mine").affects(known))
	assert.False(t, del("someone-else").affects(known))
	assert.False(t, del("mine").affects(taskIDs(nil)))

	insert := changeEvent{OperationType: "insert"}
	insert.DocumentKey.ID = "new"
	assert.True(t, insert.affects(known))
}

func TestChangePipelineScopesWritesToOwner(t *testing.T) {
	p := changePipeline("u1")
	require.Len(t, p, 1)

	match := p[0][0]
	assert.Equal(t, "$match", match.Key)
	or := match.Value.(bson.D)[0].Value.(bson.A)
	require.Len(t, or, 2)
	assert.Equal(t, bson.D{{Key: "fullDocument.userId", Value: "u1"}}, or[0])
	assert.Equal(t, bson.D{{Key: "operationType", Value: "delete"}}, or[1])
}
