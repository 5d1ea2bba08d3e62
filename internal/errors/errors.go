// Package errors provides the coded, user-facing errors reported by
// the CLI and configuration surfaces. Library packages return plain
// sentinel errors; this package dresses failures that reach a
// terminal with a code, detail, and a suggestion.
package errors

import "fmt"

// Category classifies an error for reporting.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryRuntime Category = "runtime"
	CategoryPersist Category = "persist"
	CategoryCLI     Category = "cli"
)

// StateError is a structured error with a stable code.
type StateError struct {
	// Code is a unique identifier (e.g. "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StateError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation.
func (e *StateError) WithDetail(d string) *StateError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *StateError) WithSuggestion(s string) *StateError {
	e.Suggestion = s
	return e
}

// Wrap records the underlying error.
func (e *StateError) Wrap(err error) *StateError {
	e.Wrapped = err
	return e
}

// New creates a StateError from a registered code. Unregistered codes
// produce a generic runtime error carrying the code, so a typo never
// hides the original failure.
func New(code string) *StateError {
	if tmpl, ok := registry[code]; ok {
		return &StateError{
			Code:     code,
			Category: tmpl.Category,
			Message:  tmpl.Message,
			Detail:   tmpl.Detail,
		}
	}
	return &StateError{
		Code:     code,
		Category: CategoryRuntime,
		Message:  "unknown error",
	}
}

// Newf creates an uncoded StateError with a formatted message.
func Newf(category Category, format string, args ...any) *StateError {
	return &StateError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}
