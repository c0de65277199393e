package board

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

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newBoard(t *testing.T) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetBoard(projection.BuildBoard([]model.Task{
		{ID: "a", Text: "a", Status: model.StatusBacklog, Order: 1},
		{ID: "b", Text: "b", Status: model.StatusBacklog, Order: 2},
		{ID: "c", Text: "c", Status: model.StatusToday, Order: 1},
	}), time.Now())
	return m
}

func TestNavigationClampsToCards(t *testing.T) {
	m := newBoard(t)

	m, _ = m.Update(runes("j"))
	m, _ = m.Update(runes("j"))
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)

	m, _ = m.Update(runes("l"))
	sel, _ = m.Selected()
	assert.Equal(t, "c", sel.ID)

	m, _ = m.Update(runes("l"))
	_, ok = m.Selected()
	assert.False(t, ok, "in progress column is empty")
}

func TestMoveDownEmitsIndexWithinColumn(t *testing.T) {
	m := newBoard(t)

	m, cmd := m.Update(runes("J"))
	require.NotNil(t, cmd)
	assert.Equal(t, MoveMsg{TaskID: "a", Status: model.StatusBacklog, Index: 1}, cmd())

	_, cmd = m.Update(runes("J"))
	assert.Nil(t, cmd, "already last")
}

func TestMoveRightTargetsNextColumn(t *testing.T) {
	m := newBoard(t)
	m, _ = m.Update(runes("j"))

	m, cmd := m.Update(runes("L"))
	require.NotNil(t, cmd)
	assert.Equal(t, MoveMsg{TaskID: "b", Status: model.StatusToday, Index: 1}, cmd())

	// The cursor follows the card once the new projection arrives.
	m.SetBoard(projection.BuildBoard([]model.Task{
		{ID: "a", Status: model.StatusBacklog, Order: 1},
		{ID: "c", Status: model.StatusToday, Order: 1},
		{ID: "b", Status: model.StatusToday, Order: 1001},
	}), time.Now())
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)
}

func TestSelectOpensCard(t *testing.T) {
	m := newBoard(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedTaskMsg{TaskID: "a"}, cmd())
	assert.Contains(t, m.View(), "Backlog (2)")
}
