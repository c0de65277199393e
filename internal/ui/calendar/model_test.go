package calendar

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/keys"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
)

var today = time.Date(2024, 3, 8, 0, 0, 0, 0, time.Local)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newCalendar(t *testing.T, tasks ...model.Task) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), 140, 40)
	m.SetCalendar(projection.BuildCalendar(tasks, today, today))
	return m
}

func TestCursorStartsOnToday(t *testing.T) {
	m := newCalendar(t)
	day, ok := m.Day()
	require.True(t, ok)
	assert.True(t, day.Date.Equal(today))
}

func TestCursorMovesByDayAndWeek(t *testing.T) {
	m := newCalendar(t)

	m, _ = m.Update(runes("l"))
	m, _ = m.Update(runes("j"))
	day, _ := m.Day()
	assert.Equal(t, 16, day.Date.Day())

	m, _ = m.Update(runes("h"))
	m, _ = m.Update(runes("k"))
	day, _ = m.Day()
	assert.Equal(t, 8, day.Date.Day())
}

func TestAddOnDayEmitsDate(t *testing.T) {
	m := newCalendar(t)

	_, cmd := m.Update(runes("a"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(DayMsg)
	require.True(t, ok)
	assert.True(t, msg.Date.Equal(today))
}

func TestWalkingOffGridChangesMonth(t *testing.T) {
	m := newCalendar(t)
	for i := 0; i < 6; i++ {
		var cmd tea.Cmd
		m, cmd = m.Update(runes("j"))
		if cmd != nil {
			assert.Equal(t, MonthMsg{Delta: 1}, cmd())
			return
		}
	}
	t.Fatal("expected a month change")
}

func TestSelectOpensFirstTaskOfDay(t *testing.T) {
	due := model.NewDueDate(today)
	m := newCalendar(t, model.Task{ID: "x", Text: "Dentist", DueDate: &due})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedTaskMsg{TaskID: "x"}, cmd())
	assert.Contains(t, m.View(), "March 2024")
	assert.Contains(t, m.View(), "Dentist")
}

func TestSetCalendarKeepsCursorDate(t *testing.T) {
	m := newCalendar(t)
	m, _ = m.Update(runes("l"))

	m.SetCalendar(projection.BuildCalendar(nil, today, today))
	day, _ := m.Day()
	assert.Equal(t, 9, day.Date.Day())

	m.SetCalendar(projection.BuildCalendar(nil, today.AddDate(0, 1, 0), today))
	day, _ = m.Day()
	assert.Equal(t, time.April, day.Date.Month())
	assert.Equal(t, 1, day.Date.Day())
}
