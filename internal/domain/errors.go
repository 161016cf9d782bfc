package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks missing or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error pairs an error kind with a message safe to show to clients.
type Error struct {
	kind error
	msg  string
}

// NewError returns an error that matches kind under errors.Is and reports msg.
func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when input fails schema checks.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
