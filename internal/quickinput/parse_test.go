package quickinput

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/model"
)

var now = time.Date(2024, 3, 8, 10, 30, 0, 0, time.Local)

func TestParseFullLine(t *testing.T) {
	d := Parse("Buy milk #errand !high tomorrow", now)

	assert.Equal(t, "Buy milk", d.Text)
	assert.Equal(t, []string{"errand"}, d.Tags)
	assert.Equal(t, model.PriorityHigh, d.Priority)
	assert.Equal(t, model.StatusBacklog, d.Status)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, "2024-03-09", d.DueDate.String())
	assert.False(t, d.DueDate.HasTime)
}

func TestParsePlainText(t *testing.T) {
	d := Parse("Plain task", now)

	assert.Equal(t, "Plain task", d.Text)
	assert.Equal(t, []string{}, d.Tags)
	assert.Equal(t, model.PriorityNormal, d.Priority)
	assert.Equal(t, model.StatusBacklog, d.Status)
	assert.Nil(t, d.DueDate)
}

func TestParseCases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		text     string
		tags     []string
		priority model.Priority
		due      string
	}{
		{
			name:     "end to end example",
			input:    "Call Jake tomorrow !high #work",
			text:     "Call Jake",
			tags:     []string{"work"},
			priority: model.PriorityHigh,
			due:      "2024-03-09",
		},
		{
			name:     "today with pm time",
			input:    "Standup today 3pm",
			text:     "Standup",
			tags:     []string{},
			priority: model.PriorityNormal,
			due:      time.Date(2024, 3, 8, 15, 0, 0, 0, time.Local).Format(time.RFC3339),
		},
		{
			name:     "in n days with minutes",
			input:    "Review in 3 days 9:45am !low",
			text:     "Review",
			tags:     []string{},
			priority: model.PriorityLow,
			due:      time.Date(2024, 3, 11, 9, 45, 0, 0, time.Local).Format(time.RFC3339),
		},
		{
			name:     "twelve am is midnight",
			input:    "Deploy tomorrow 12am",
			text:     "Deploy",
			tags:     []string{},
			priority: model.PriorityNormal,
			due:      time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local).Format(time.RFC3339),
		},
		{
			name:     "twelve pm stays noon",
			input:    "Lunch today 12pm",
			text:     "Lunch",
			tags:     []string{},
			priority: model.PriorityNormal,
			due:      time.Date(2024, 3, 8, 12, 0, 0, 0, time.Local).Format(time.RFC3339),
		},
		{
			name:     "bare time stays in title",
			input:    "Call mom 3pm",
			text:     "Call mom 3pm",
			tags:     []string{},
			priority: model.PriorityNormal,
		},
		{
			name:     "case insensitive keywords",
			input:    "Ship TOMORROW !HIGH",
			text:     "Ship",
			tags:     []string{},
			priority: model.PriorityHigh,
			due:      "2024-03-09",
		},
		{
			name:     "adjacent tags",
			input:    "Sort #a#b  files",
			text:     "Sort files",
			tags:     []string{"a", "b"},
			priority: model.PriorityNormal,
		},
		{
			name:     "only first priority counts",
			input:    "x !low !high",
			text:     "x",
			tags:     []string{},
			priority: model.PriorityLow,
		},
		{
			name:     "singular day",
			input:    "Pay in 1 day",
			text:     "Pay",
			tags:     []string{},
			priority: model.PriorityNormal,
			due:      "2024-03-09",
		},
		{
			name:     "empty input",
			input:    "   ",
			text:     "",
			tags:     []string{},
			priority: model.PriorityNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.input, now)
			assert.Equal(t, tt.text, d.Text)
			assert.Equal(t, tt.tags, d.Tags)
			assert.Equal(t, tt.priority, d.Priority)
			if tt.due == "" {
				assert.Nil(t, d.DueDate)
				return
			}
			require.NotNil(t, d.DueDate)
			assert.Equal(t, tt.due, d.DueDate.String())
		})
	}
}

func TestParseTagsNeverInText(t *testing.T) {
	inputs := []string{
		"#one two #three",
		"mixed#inline tag",
		"#a #b #c",
		"x #tag_with_underscore !high today",
	}
	for _, in := range inputs {
		d := Parse(in, now)
		for _, tag := range d.Tags {
			assert.NotContains(t, d.Text, "#"+tag, "input %q", in)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	inputs := []string{
		"Buy milk #errand !high tomorrow",
		"Call mom 3pm",
		"Review in 3 days 9:45am !low",
		"Plain task",
		"  spaced    out   today  ",
		"Read in 45 today days",
		"Plan 9am in 30 tomorrow days",
		"Stack in in 2 today days days",
		"Sort in 4 #tag days today",
	}
	for _, in := range inputs {
		assertParsedOnce(t, in)
	}
}

func TestParseIsIdempotentForGeneratedInputs(t *testing.T) {
	words := []string{"in", "3", "days", "today", "tomorrow", "9am", "10:30", "!high", "#work", "x"}

	var gen func(prefix []string, depth int)
	gen = func(prefix []string, depth int) {
		if depth == 0 {
			assertParsedOnce(t, strings.Join(prefix, " "))
			return
		}
		for _, w := range words {
			gen(append(prefix, w), depth-1)
		}
	}
	gen([]string{"Task"}, 4)
}

func assertParsedOnce(t *testing.T, in string) {
	t.Helper()
	first := Parse(in, now)
	second := Parse(first.Text, now)

	assert.Equal(t, first.Text, second.Text, "input %q", in)
	assert.Empty(t, second.Tags, "input %q", in)
	assert.Equal(t, model.PriorityNormal, second.Priority, "input %q", in)
	assert.Nil(t, second.DueDate, "input %q", in)
}

func TestParseKeepsFirstDateWhenStrippingExposedOnes(t *testing.T) {
	d := Parse("Read in 45 today days", now)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, model.NewDueDate(now).String(), d.DueDate.String())
	assert.Equal(t, "Read", d.Text)

	d = Parse("Plan 9am in 30 tomorrow days", now)
	require.NotNil(t, d.DueDate)
	assert.True(t, d.DueDate.HasTime)
	assert.Equal(t, 9, d.DueDate.Time.Hour())
	assert.Equal(t, "Plan", d.Text)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, ParseTags(" a, ,b c ,"))
	assert.Equal(t, []string{}, ParseTags(""))
}
