package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error carries one of the sentinel kinds above plus enough detail to
// reconstruct the failing id, field or transition.
type Error struct {
	Kind   error
	Entity string // "task" or "document"
	ID     int64
	Field  string
	From   Status
	To     Status
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("%s %d %s", e.Entity, e.ID, e.Kind)
	case ErrInvalidTransition:
		return fmt.Sprintf("%s: task %d cannot move from %s to %s", e.Kind, e.ID, e.From, e.To)
	case ErrValidation:
		if e.Field != "" {
			return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func Validationf(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func InvalidTransition(taskID int64, from, to Status) error {
	return &Error{Kind: ErrInvalidTransition, Entity: "task", ID: taskID, From: from, To: to}
}

// Unavailable marks err as a storage fault that survived the adapter's retries.
func Unavailable(err error) error {
	return &Error{Kind: ErrStorageUnavailable, Err: err}
}

// IsDomain reports whether err is one of the caller-input errors, which
// are never retried.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition)
}
