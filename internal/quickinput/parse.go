// Package quickinput turns a free-text "quick add" line into a task draft.
//
// Extraction runs in a fixed order (tags, priority, relative date, time of
// day) and each step removes what it consumed before the next step looks
// at the text. A time of day is only recognized once a relative date has
// been found, so "call mom 3pm" keeps "3pm" in the title.
package quickinput

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

var (
	tagPattern      = regexp.MustCompile(`#(\w+)`)
	priorityPattern = regexp.MustCompile(`(?i)!(high|low)`)
	datePattern     = regexp.MustCompile(`(?i)\b(today|tomorrow|in\s+(\d+)\s+days?)\b`)
	timePattern     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// Parse extracts tags, priority, due date and time from input. It never
// fails: anything it does not recognize stays in the title.
func Parse(input string, now time.Time) model.Draft {
	draft := model.Draft{
		Tags:     []string{},
		Priority: model.PriorityNormal,
		Status:   model.StatusBacklog,
	}
	text := input

	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		draft.Tags = append(draft.Tags, m[1])
	}
	text = tagPattern.ReplaceAllString(text, " ")

	if m := priorityPattern.FindStringSubmatch(text); m != nil {
		draft.Priority = model.Priority(strings.ToLower(m[1]))
		text = priorityPattern.ReplaceAllString(text, " ")
	}

	if m := datePattern.FindStringSubmatch(text); m != nil {
		due := relativeDate(m, now)
		draft.DueDate = &due
		text = stripDates(text)
	}

	if draft.DueDate != nil {
		for _, loc := range timePattern.FindAllStringSubmatchIndex(text, -1) {
			hour, minute, ok := clockTime(text, loc)
			if !ok {
				continue
			}
			due := draft.DueDate.At(hour, minute)
			draft.DueDate = &due
			text = stripDates(text[:loc[0]] + " " + text[loc[1]:])
			break
		}
	}

	draft.Text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	return draft
}

// stripDates removes every date phrase from text, including phrases that
// only appear once an inner one is removed, as in "in 3 today days".
func stripDates(text string) string {
	for datePattern.MatchString(text) {
		text = datePattern.ReplaceAllString(text, " ")
	}
	return text
}

// relativeDate resolves a datePattern match against now.
func relativeDate(m []string, now time.Time) model.DueDate {
	today := model.NewDueDate(now)
	switch strings.ToLower(m[1]) {
	case "today":
		return today
	case "tomorrow":
		return model.NewDueDate(today.Time.AddDate(0, 0, 1))
	}
	days, err := strconv.Atoi(m[2])
	if err != nil {
		return today
	}
	return model.NewDueDate(today.Time.AddDate(0, 0, days))
}

// clockTime converts a timePattern match into 24-hour clock values. It
// rejects matches that are not a valid time of day, such as "45" or "9:75".
func clockTime(text string, loc []int) (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return 0, 0, false
	}
	if loc[4] >= 0 {
		minute, err = strconv.Atoi(text[loc[4]:loc[5]])
		if err != nil {
			return 0, 0, false
		}
	}
	if loc[6] >= 0 {
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		switch strings.ToLower(text[loc[6]:loc[7]]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ParseTags splits the comma-separated tag field of the edit form,
// trimming entries and dropping empty ones.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, part := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
