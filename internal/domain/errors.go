package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// Violation is one broken rule of a submission.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every violated rule, not only the first one.
type ValidationError struct {
	Violations []Violation
}

func NewValidationError(v ...Violation) *ValidationError {
	return &ValidationError{Violations: v}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Messages returns the human readable rule messages in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Message)
	}
	return out
}

// ConflictError reports an existing questionnaire for the same establishment and week.
type ConflictError struct {
	ExistingID string
	Kind       Kind
	Week       WeekKey
}

func (e *ConflictError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("a %s questionnaire already exists for week %s", e.Kind, e.Week)
	}
	return fmt.Sprintf("a %s questionnaire already exists for week %s (id %s)", e.Kind, e.Week, e.ExistingID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
