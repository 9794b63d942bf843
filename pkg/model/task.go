package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

var Statuses = []Status{StatusNew, StatusInProgress, StatusBlocked, StatusDone}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities is ordered from least to most pressing; Rank indexes into it.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool { return p.Rank() >= 0 }

func (p Priority) Rank() int {
	for i, v := range Priorities {
		if p == v {
			return i
		}
	}
	return -1
}

const (
	MaxTitleLen       = 255
	MaxDescriptionLen = 2000
	MaxActorLen       = 100

	// DateLayout is the wire and storage format of due dates.
	DateLayout = "2006-01-02"
)

// Task is a tracked work item.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Owner       string     `json:"owner,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DueDateString renders the due date as YYYY-MM-DD, or "" when unset.
func (t Task) DueDateString() string {
	if t.DueDate == nil {
		return ""
	}
	return t.DueDate.Format(DateLayout)
}

// NewTask holds the caller-supplied fields of a task about to be created.
// Zero Status and Priority take their defaults.
type NewTask struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Owner       string
	CreatedBy   string
	DueDate     *time.Time
}

// Normalize trims the title, fills in defaults and truncates the due date
// to a calendar day. It is applied before Validate.
func (n NewTask) Normalize() NewTask {
	n.Title = strings.TrimSpace(n.Title)
	if n.Status == "" {
		n.Status = StatusNew
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.DueDate != nil {
		d := TruncateDate(*n.DueDate)
		n.DueDate = &d
	}
	return n
}

func (n NewTask) Validate() error {
	if err := validateTitle(n.Title); err != nil {
		return err
	}
	if err := maxLen("description", n.Description, MaxDescriptionLen); err != nil {
		return err
	}
	if !n.Status.Valid() {
		return Validationf("status", "unknown status %q", n.Status)
	}
	if !n.Priority.Valid() {
		return Validationf("priority", "unknown priority %q", n.Priority)
	}
	if err := maxLen("owner", n.Owner, MaxActorLen); err != nil {
		return err
	}
	return maxLen("created_by", n.CreatedBy, MaxActorLen)
}

// TaskPatch is a partial update. Nil fields are left untouched; an empty
// string clears Description or Owner, ClearDueDate removes the due date.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *Priority
	Owner        *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *Status
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Owner == nil && p.DueDate == nil && !p.ClearDueDate && p.Status == nil
}

func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(strings.TrimSpace(*p.Title)); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := maxLen("description", *p.Description, MaxDescriptionLen); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return Validationf("priority", "unknown priority %q", *p.Priority)
	}
	if p.Owner != nil {
		if err := maxLen("owner", *p.Owner, MaxActorLen); err != nil {
			return err
		}
	}
	if p.DueDate != nil && p.ClearDueDate {
		return Validationf("due_date", "cannot set and clear the due date at once")
	}
	if p.Status != nil && !p.Status.Valid() {
		return Validationf("status", "unknown status %q", *p.Status)
	}
	return nil
}

// Apply returns t with the patch applied and the names of the fields whose
// value actually changed, in a fixed order.
func (p TaskPatch) Apply(t Task) (Task, []string) {
	var changed []string
	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != t.Title {
			t.Title = title
			changed = append(changed, "title")
		}
	}
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = append(changed, "description")
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		t.Priority = *p.Priority
		changed = append(changed, "priority")
	}
	if p.Owner != nil && *p.Owner != t.Owner {
		t.Owner = *p.Owner
		changed = append(changed, "owner")
	}
	switch {
	case p.DueDate != nil:
		d := TruncateDate(*p.DueDate)
		if t.DueDate == nil || !t.DueDate.Equal(d) {
			t.DueDate = &d
			changed = append(changed, "due_date")
		}
	case p.ClearDueDate && t.DueDate != nil:
		t.DueDate = nil
		changed = append(changed, "due_date")
	}
	if p.Status != nil && *p.Status != t.Status {
		t.Status = *p.Status
		changed = append(changed, "status")
	}
	return t, changed
}

// ParseDate parses a YYYY-MM-DD due date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validationf("due_date", "expected YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

// TruncateDate drops the clock part, keeping the calendar day in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateTitle(title string) error {
	if title == "" {
		return Validationf("title", "must not be empty")
	}
	return maxLen("title", title, MaxTitleLen)
}

func maxLen(field, v string, limit int) error {
	if n := utf8.RuneCountInString(v); n > limit {
		return Validationf(field, "length %d exceeds %d characters", n, limit)
	}
	return nil
}
