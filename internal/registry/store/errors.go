package store

import (
	"fmt"
	"strings"
)

// NotFoundError indicates the target record (or file) does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError indicates a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates per-field failures so callers see every
// rejected field in one response.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the rejected fields.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, v := range e {
		fields[i] = v.Field
	}
	return fields
}

// ConflictError indicates a uniqueness violation, most commonly a business
// identifier collision on insert.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InvalidStatusError indicates a status value outside the enumerated set.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}

// ForbiddenError indicates the caller lacks the admin role.
type ForbiddenError struct{}

func (e *ForbiddenError) Error() string {
	return "forbidden"
}
