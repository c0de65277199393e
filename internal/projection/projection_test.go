package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

var now = time.Date(2024, 3, 8, 10, 0, 0, 0, time.Local)

func due(y int, m time.Month, d int) *model.DueDate {
	v := model.NewDueDate(time.Date(y, m, d, 0, 0, 0, 0, time.Local))
	return &v
}

func sample() []model.Task {
	p1 := "p1"
	return []model.Task{
		{ID: "p1", Status: model.StatusToday, Priority: model.PriorityNormal, Order: 20},
		{ID: "p2", Status: model.StatusToday, Priority: model.PriorityHigh, Order: 10, DueDate: due(2024, 3, 10)},
		{ID: "b1", Status: model.StatusBacklog, Priority: model.PriorityLow, Order: 5, DueDate: due(2024, 3, 8)},
		{ID: "d1", Status: model.StatusDone, Priority: model.PriorityNormal, Order: 1},
		{ID: "s1", Status: model.StatusDone, Order: 1, ParentID: &p1, DueDate: due(2024, 3, 8)},
		{ID: "s2", Status: model.StatusBacklog, Order: 2, ParentID: &p1},
	}
}

func TestBoardPlacesTopLevelTasksOnce(t *testing.T) {
	tasks := sample()
	board := BuildBoard(tasks)

	require.Len(t, board.Columns, 4)
	for i, st := range model.Statuses {
		assert.Equal(t, st, board.Columns[i].Status)
	}

	seen := make(map[string]int)
	for _, c := range board.Columns {
		for _, card := range c.Cards {
			seen[card.Task.ID]++
			assert.Equal(t, c.Status, card.Task.Status)
		}
	}
	for _, task := range tasks {
		if task.IsSubtask() {
			assert.Zero(t, seen[task.ID], "subtask %s on board", task.ID)
		} else {
			assert.Equal(t, 1, seen[task.ID], "task %s", task.ID)
		}
	}
}

func TestBoardSortsByOrderAndCountsSubtasks(t *testing.T) {
	board := BuildBoard(sample())

	today := board.Column(model.StatusToday)
	require.Len(t, today.Cards, 2)
	assert.Equal(t, "p2", today.Cards[0].Task.ID)
	assert.Equal(t, "p1", today.Cards[1].Task.ID)
	assert.Equal(t, Progress{Completed: 1, Total: 2}, today.Cards[1].Progress)
	assert.Equal(t, Progress{}, today.Cards[0].Progress)

	assert.Empty(t, board.Column(model.StatusInProgress).Cards)
	assert.NotNil(t, board.Column(model.StatusInProgress).Cards)
}

func TestBuildBoardDoesNotModifyInput(t *testing.T) {
	tasks := sample()
	before := make([]string, len(tasks))
	for i, task := range tasks {
		before[i] = task.ID
	}
	BuildBoard(tasks)
	BuildList(tasks, ListFilter{})
	for i, task := range tasks {
		assert.Equal(t, before[i], task.ID)
	}
}

func TestSubtasks(t *testing.T) {
	got := Subtasks(sample(), "p1")
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)
	assert.Empty(t, Subtasks(sample(), "d1"))
}

func TestListOrdering(t *testing.T) {
	list := BuildList(sample(), ListFilter{})

	ids := make([]string, len(list))
	for i, task := range list {
		ids[i] = task.ID
	}
	// Dated first by date, then undated by priority then order.
	assert.Equal(t, []string{"b1", "p2", "d1", "p1"}, ids)
}

func TestListFilter(t *testing.T) {
	list := BuildList(sample(), ListFilter{Status: model.StatusToday, Priority: model.PriorityHigh})
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)

	assert.Empty(t, BuildList(sample(), ListFilter{Status: model.StatusInProgress}))
}

func TestListIsTotalOrder(t *testing.T) {
	list := BuildList(sample(), ListFilter{})
	for i := 0; i+1 < len(list); i++ {
		assert.LessOrEqual(t, Compare(list[i], list[i+1]), 0)
		assert.GreaterOrEqual(t, Compare(list[i+1], list[i]), 0)
	}
	for _, a := range list {
		assert.Zero(t, Compare(a, a))
	}
}

func TestCompareUsesTimeOfDay(t *testing.T) {
	morning := due(2024, 3, 8).At(9, 0)
	evening := due(2024, 3, 8).At(18, 0)
	a := model.Task{ID: "a", DueDate: &evening, Priority: model.PriorityHigh}
	b := model.Task{ID: "b", DueDate: &morning, Priority: model.PriorityLow}
	assert.Equal(t, 1, Compare(a, b))
	assert.Equal(t, -1, Compare(b, a))
}

func TestCalendarGrid(t *testing.T) {
	cal := BuildCalendar(sample(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local), now)

	assert.Equal(t, "March 2024", cal.Title())
	require.Len(t, cal.Cells, CalendarCells)

	// March 1st 2024 is a Friday, so the grid starts on Sunday Feb 25th.
	assert.Equal(t, 25, cal.Cells[0].Date.Day())
	assert.Equal(t, time.February, cal.Cells[0].Date.Month())
	assert.True(t, cal.Cells[0].OtherMonth)
	assert.Equal(t, time.Sunday, cal.Cells[0].Date.Weekday())

	first := cal.Cells[5]
	assert.Equal(t, 1, first.Date.Day())
	assert.False(t, first.OtherMonth)

	eighth := cal.Cells[12]
	assert.Equal(t, 8, eighth.Date.Day())
	assert.True(t, eighth.Today)
	require.Len(t, eighth.Tasks, 1)
	assert.Equal(t, "b1", eighth.Tasks[0].ID)

	tenth := cal.Cells[14]
	require.Len(t, tenth.Tasks, 1)
	assert.Equal(t, "p2", tenth.Tasks[0].ID)

	last := cal.Cells[CalendarCells-1]
	assert.Equal(t, time.April, last.Date.Month())
	assert.True(t, last.OtherMonth)
}

func TestDueStatusAndLabel(t *testing.T) {
	tests := []struct {
		due   *model.DueDate
		state DueState
		label string
	}{
		{due(2024, 3, 8), DueToday, "Today"},
		{due(2024, 3, 9), DueUpcoming, "Tomorrow"},
		{due(2024, 3, 7), DueOverdue, "Yesterday"},
		{due(2024, 3, 4), DueOverdue, "4 days ago"},
		{due(2024, 3, 12), DueUpcoming, "In 4 days"},
		{due(2024, 4, 2), DueUpcoming, "Apr 2"},
	}
	for _, tt := range tests {
		task := model.Task{DueDate: tt.due}
		assert.Equal(t, tt.state, DueStatus(task, now), tt.label)
		assert.Equal(t, tt.label, DueLabel(*tt.due, now))
	}
	assert.Equal(t, DueNone, DueStatus(model.Task{}, now))
}
