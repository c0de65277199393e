package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(cmds []Command) []CommandID {
	out := make([]CommandID, len(cmds))
	for i, c := range cmds {
		out[i] = c.ID
	}
	return out
}

func TestFilterCommandsEmptyQueryListsAll(t *testing.T) {
	assert.Equal(t, ids(Commands), ids(FilterCommands("  ")))
}

func TestFilterCommandsFuzzy(t *testing.T) {
	got := ids(FilterCommands("cal"))
	require.NotEmpty(t, got)
	assert.Equal(t, CommandCalendar, got[0])

	got = ids(FilterCommands("theme"))
	require.NotEmpty(t, got)
	assert.Equal(t, CommandToggleTheme, got[0])

	assert.Empty(t, FilterCommands("zzzz"))
}

func TestExecuteSwitchesViews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.c.Execute(ctx, CommandList))
	assert.Equal(t, ViewList, h.c.State().View)
	require.NoError(t, h.c.Execute(ctx, CommandCalendar))
	assert.Equal(t, ViewCalendar, h.c.State().View)
	require.NoError(t, h.c.Execute(ctx, CommandKanban))
	assert.Equal(t, ViewKanban, h.c.State().View)

	require.NoError(t, h.c.Execute(ctx, CommandToggleTheme))
	assert.Equal(t, ThemeLight, h.c.State().Theme)

	require.NoError(t, h.c.Execute(ctx, CommandUndo))
	assert.Equal(t, []string{"Nothing to undo"}, h.rec.Messages())

	assert.Error(t, h.c.Execute(ctx, CommandID("bogus")))
}
