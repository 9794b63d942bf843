package model

import "strings"

// TaskFilter narrows ListTasks. Empty fields do not filter.
type TaskFilter struct {
	Status    Status
	Owner     string
	Priority  Priority
	CreatedBy string
}

func (f TaskFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return Validationf("status", "unknown status filter %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return Validationf("priority", "unknown priority filter %q", f.Priority)
	}
	return nil
}

type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortUpdatedAt SortKey = "updated_at"
	SortTitle     SortKey = "title"
	SortPriority  SortKey = "priority"
	SortDueDate   SortKey = "due_date"
)

var SortKeys = []SortKey{SortCreatedAt, SortUpdatedAt, SortTitle, SortPriority, SortDueDate}

type TaskSort struct {
	Key  SortKey
	Desc bool
}

// DefaultTaskSort lists the most recently created tasks first.
var DefaultTaskSort = TaskSort{Key: SortCreatedAt, Desc: true}

func (s TaskSort) Validate() error {
	for _, k := range SortKeys {
		if s.Key == k {
			return nil
		}
	}
	return Validationf("sort", "unknown sort key %q", s.Key)
}

// ParseSort reads a sort key and an asc|desc direction. Empty values fall
// back to DefaultTaskSort.
func ParseSort(key, direction string) (TaskSort, error) {
	s := DefaultTaskSort
	if key != "" {
		s.Key = SortKey(strings.ToLower(key))
	}
	switch strings.ToLower(direction) {
	case "":
	case "asc":
		s.Desc = false
	case "desc":
		s.Desc = true
	default:
		return TaskSort{}, Validationf("order", "direction must be asc or desc, got %q", direction)
	}
	if err := s.Validate(); err != nil {
		return TaskSort{}, err
	}
	return s, nil
}

// Page is a limit/offset window. The API layer bounds Limit; a
// non-positive Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) Validate() error {
	if p.Offset < 0 {
		return Validationf("offset", "must not be negative")
	}
	return nil
}
