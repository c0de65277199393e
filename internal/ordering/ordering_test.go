package ordering

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

var now = time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC)

func col(orders ...float64) []model.Task {
	out := make([]model.Task, len(orders))
	for i, o := range orders {
		out[i] = model.Task{ID: string(rune('a' + i)), Status: model.StatusBacklog, Order: o}
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		column []model.Task
		index  int
		want   float64
	}{
		{"empty column seeds with now", nil, 0, float64(now.UnixMilli())},
		{"prepend halves first", col(100, 200), 0, 50},
		{"negative index prepends", col(100, 200), -3, 50},
		{"append adds gap", col(100, 200), 2, 1200},
		{"beyond end appends", col(100, 200), 9, 1200},
		{"between takes mean", col(100, 200, 400), 2, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.column, tt.index, now))
		})
	}
}

func TestComputeStrictlyBetween(t *testing.T) {
	pairs := [][2]float64{
		{1, 2},
		{0.001, 0.002},
		{1e12, 1e12 + 1},
		{-50, 50},
		{1710000000000, 1710000001000},
	}
	for _, p := range pairs {
		v := Compute(col(p[0], p[1]), 1, now)
		assert.Greater(t, v, p[0])
		assert.Less(t, v, p[1])
	}
}

func TestEmptyThenPrependOrdersBeforeFirst(t *testing.T) {
	first := model.Task{ID: "first", Order: Compute(nil, 0, now)}
	second := Compute([]model.Task{first}, 0, now)
	assert.Less(t, second, first.Order)
}

func TestColumnFiltersAndSorts(t *testing.T) {
	parent := "p"
	tasks := []model.Task{
		{ID: "c", Status: model.StatusToday, Order: 30},
		{ID: "a", Status: model.StatusToday, Order: 10},
		{ID: "sub", Status: model.StatusToday, Order: 5, ParentID: &parent},
		{ID: "other", Status: model.StatusDone, Order: 1},
		{ID: "moving", Status: model.StatusToday, Order: 20},
	}

	got := Column(tasks, model.StatusToday, "moving")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestExhausted(t *testing.T) {
	assert.False(t, Exhausted(nil, 0, now))
	assert.False(t, Exhausted(col(1, 2), 1, now))
	assert.False(t, Exhausted(col(1, 2), 2, now))
	assert.False(t, Exhausted(col(1, 2), 0, now))

	next := math.Nextafter(1, 2)
	assert.True(t, Exhausted(col(1, next), 1, now))
	assert.True(t, Exhausted(col(0, 5), 0, now))
}

func TestRepeatedBoundaryInsertsEventuallyExhaust(t *testing.T) {
	column := col(1, 2)
	var steps int
	for !Exhausted(column, 1, now) {
		v := Compute(column, 1, now)
		column = []model.Task{column[0], {ID: "n", Order: v}}
		steps++
		require.Less(t, steps, 200)
	}
	assert.Greater(t, steps, 40)
}

func TestRebalance(t *testing.T) {
	column := col(0.5, 1000, 1000.0000001, 9000)
	got := Rebalance(column)

	assert.Equal(t, []Placement{
		{TaskID: "a", Order: 1000},
		{TaskID: "b", Order: 2000},
		{TaskID: "c", Order: 3000},
		{TaskID: "d", Order: 4000},
	}, got)

	assert.Empty(t, Rebalance(col(1000, 2000, 3000)))
}

func TestRebalanceSkipsKeysInPlace(t *testing.T) {
	got := Rebalance(col(1000, 1500, 3000))
	assert.Equal(t, []Placement{{TaskID: "b", Order: 2000}}, got)
}
