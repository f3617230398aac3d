package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("entity not found")
var ErrValidation = errors.New("entity is invalid")
var ErrInvalidFilter = errors.New("invalid filter")

// ValidationError describes which fields of a ticket body were rejected.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Details []FieldError
}

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("%s %s", d.Field, d.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Missing builds a ValidationError for required fields that were absent.
func Missing(fields ...string) *ValidationError {
	v := &ValidationError{}
	for _, f := range fields {
		v.Details = append(v.Details, FieldError{Field: f, Code: "required", Message: "is required"})
	}
	return v
}

// Mistyped builds a ValidationError for a field holding a value of the wrong type.
func Mistyped(field, want string) *ValidationError {
	return &ValidationError{Details: []FieldError{{
		Field:   field,
		Code:    "type",
		Message: "must be " + want,
	}}}
}

// NotFound wraps ErrNotFound with the id that was looked up.
func NotFound(id string) error {
	return fmt.Errorf("%w: ticket with id %q", ErrNotFound, id)
}

// InvalidFilter wraps ErrInvalidFilter with a reason.
func InvalidFilter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}
