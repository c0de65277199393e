package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the board column a task belongs to.
type Status string

// Task status constants, in board column order.
const (
	StatusBacklog    Status = "backlog"
	StatusToday      Status = "today"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"
)

// Statuses lists every status in board column order.
var Statuses = []Status{StatusBacklog, StatusToday, StatusInProgress, StatusDone}

// Label returns the human-readable column title.
func (s Status) Label() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusToday:
		return "Today"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// Rank orders priorities for sorting: high 0, normal 1, low 2.
// Unknown values sort with normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Layouts used to serialize due dates.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339
)

// DueDate is a calendar date with an optional time of day.
type DueDate struct {
	Time    time.Time
	HasTime bool
}

// NewDueDate returns a date-only due date for the calendar day of t.
func NewDueDate(t time.Time) DueDate {
	return DueDate{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

// At returns a copy of d with the given time of day.
func (d DueDate) At(hour, minute int) DueDate {
	t := d.Time
	return DueDate{
		Time:    time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location()),
		HasTime: true,
	}
}

// Day returns the due date truncated to midnight of its calendar day.
func (d DueDate) Day() time.Time {
	t := d.Time
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// String serializes the due date as YYYY-MM-DD, or RFC 3339 when a time
// of day is set.
func (d DueDate) String() string {
	if d.HasTime {
		return d.Time.Format(DateTimeLayout)
	}
	return d.Time.Format(DateLayout)
}

// ParseDueDate parses the output of DueDate.String. Date-only values are
// interpreted in loc.
func ParseDueDate(s string, loc *time.Location) (DueDate, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return DueDate{Time: t}, nil
	}
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return DueDate{}, fmt.Errorf("parsing due date %q: %w", s, err)
	}
	return DueDate{Time: t.In(loc), HasTime: true}, nil
}

// MarshalJSON encodes the due date in its String form.
func (d DueDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a due date produced by MarshalJSON.
func (d *DueDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDueDate(s, time.Local)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a user's task document as stored in the remote document store.
type Task struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"userId" db:"user_id"`
	Text        string    `json:"text" db:"text"`
	Description string    `json:"description" db:"description"`
	Status      Status    `json:"status" db:"status"`
	Priority    Priority  `json:"priority" db:"priority"`
	Tags        []string  `json:"tags" db:"-"`
	DueDate     *DueDate  `json:"dueDate,omitempty" db:"-"`
	ParentID    *string   `json:"parentId,omitempty" db:"parent_id"`
	Order       float64   `json:"order" db:"sort_order"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// IsSubtask reports whether the task is nested under a parent.
func (t Task) IsSubtask() bool {
	return t.ParentID != nil && *t.ParentID != ""
}

// Clone returns a deep copy of t so snapshots never share slices or
// pointers with the live collection.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string{}, t.Tags...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	return c
}

// Draft is an unsaved task produced by the quick-input parser or a form,
// before the store assigns it an id and timestamps.
type Draft struct {
	Text        string
	Description string
	Status      Status
	Priority    Priority
	Tags        []string
	DueDate     *DueDate
	ParentID    *string

	// Order is nil when the caller leaves placement to the store default.
	Order *float64
}

// Task builds the document to insert for owner, applying defaults for any
// field the draft leaves empty. order is used when the draft has none.
func (d Draft) Task(ownerID string, order float64) Task {
	t := Task{
		OwnerID:     ownerID,
		Text:        d.Text,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		Tags:        d.Tags,
		DueDate:     d.DueDate,
		ParentID:    d.ParentID,
		Order:       order,
	}
	if t.Status == "" {
		t.Status = StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if d.Order != nil {
		t.Order = *d.Order
	}
	return t.Clone()
}

// Patch is a partial update merged into an existing task. Nil pointer
// fields are left untouched; the Clear flags null out optional fields.
type Patch struct {
	Text         *string
	Description  *string
	Status       *Status
	Priority     *Priority
	Tags         *[]string
	DueDate      *DueDate
	ClearDueDate bool
	ParentID     *string
	ClearParent  bool
	Order        *float64
}

// PatchFromTask returns a patch that writes back every user-editable
// field of t, including clearing optional fields t does not set.
func PatchFromTask(t Task) Patch {
	c := t.Clone()
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return Patch{
		Text:         &c.Text,
		Description:  &c.Description,
		Status:       &c.Status,
		Priority:     &c.Priority,
		Tags:         &tags,
		DueDate:      c.DueDate,
		ClearDueDate: c.DueDate == nil,
		ParentID:     c.ParentID,
		ClearParent:  c.ParentID == nil,
		Order:        &c.Order,
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Tags == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.ParentID == nil && !p.ClearParent && p.Order == nil
}

// Apply returns a copy of t with the patch merged in.
func (p Patch) Apply(t Task) Task {
	out := t.Clone()
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Tags != nil {
		out.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.ClearDueDate {
		out.DueDate = nil
	}
	if p.DueDate != nil {
		d := *p.DueDate
		out.DueDate = &d
	}
	if p.ClearParent {
		out.ParentID = nil
	}
	if p.ParentID != nil {
		id := *p.ParentID
		out.ParentID = &id
	}
	if p.Order != nil {
		out.Order = *p.Order
	}
	return out
}
