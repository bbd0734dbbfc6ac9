// Package errors defines the portal's coded startup and runtime errors.
//
// Codes are registered once with a category, message and detail, so the
// CLI can print the same explanation every time a misconfiguration is hit:
//
//	return errors.New("C002").WithDetail("api.base_url is empty")
package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryRuntime Category = "runtime"
	CategoryStorage Category = "storage"
	CategoryCLI     Category = "cli"
)

// PortalError is a structured error with a code and a fix suggestion.
type PortalError struct {
	// Code is a unique error identifier (e.g., "C001").
	Code     string
	Category Category
	Message  string
	Detail   string
	// Suggestion is a hint on how to fix the error.
	Suggestion string
	Wrapped    error
}

// Error implements the error interface.
func (e *PortalError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PortalError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *PortalError) WithDetail(d string) *PortalError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PortalError) WithSuggestion(s string) *PortalError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *PortalError) Wrap(err error) *PortalError {
	e.Wrapped = err
	return e
}

// New creates a PortalError from a registered error code.
func New(code string) *PortalError {
	template, ok := registry[code]
	if !ok {
		return &PortalError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PortalError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new PortalError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PortalError {
	return &PortalError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err under code unless it already is a PortalError.
func FromError(err error, code string) *PortalError {
	if err == nil {
		return nil
	}
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first PortalError in err's chain.
func Code(err error) string {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// As returns the first PortalError in err's chain.
func As(err error) (*PortalError, bool) {
	var pe *PortalError
	ok := errors.As(err, &pe)
	return pe, ok
}
