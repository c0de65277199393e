package command

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var items = []Item{
	{ID: "kanban", Title: "Kanban view"},
	{ID: "list", Title: "List view"},
	{ID: "undo", Title: "Undo"},
}

func prefixFilter(q string) []Item {
	var out []Item
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Title), strings.ToLower(q)) {
			out = append(out, it)
		}
	}
	return out
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestQueryFiltersResults(t *testing.T) {
	m := New(prefixFilter, 80, 20)
	assert.Len(t, m.Results(), 3)

	m = typeText(m, "li")
	require.Len(t, m.Results(), 1)
	assert.Equal(t, "list", m.Results()[0].ID)
}

func TestEnterExecutesHighlighted(t *testing.T) {
	m := New(prefixFilter, 80, 20)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("list"), cmd())
}

func TestEnterWithoutMatchesDoesNothing(t *testing.T) {
	m := New(prefixFilter, 80, 20)
	m = typeText(m, "zzz")
	assert.Empty(t, m.Results())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "No matching commands")
}

func TestEscCloses(t *testing.T) {
	m := New(prefixFilter, 80, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
