package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
)

var (
	ErrUnauthorized = errors.New("unauthenticated")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("the attraction already has an accepted reservation for that date and time")

	// login failures are deliberately specific
	ErrEmailNotRegistered = errors.New("email not registered")
	ErrIncorrectPassword  = errors.New("incorrect password")
)

// ValidationError reports malformed or missing input, one message per field.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

// add records msg for field unless the field already has a message.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// UpstreamError wraps a failure of an external collaborator (places API, blob store).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RequireAdmin is the single authorization predicate for admin-only operations.
func RequireAdmin(user *model.User) error {
	if user == nil {
		return ErrUnauthorized
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
