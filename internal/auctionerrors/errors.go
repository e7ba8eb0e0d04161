// Package auctionerrors holds the error taxonomy shared by services and handlers.
// Every typed error unwraps to one of the sentinels below so callers can branch
// with errors.Is regardless of how deeply the error was wrapped.
package auctionerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrPartialEligibility = errors.New("one or more participants are not eligible")
	ErrPersistence        = errors.New("persistence failure")
	ErrUnauthorized       = errors.New("unauthorized")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidationError is returned for malformed or out-of-range input.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with optional field details.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// NotFoundError reports a missing (or not owned) resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound builds a NotFoundError.
func NewNotFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// PartialEligibilityError is returned when only part of the requested
// participant set may be assigned. Requested holds the distinct input IDs.
type PartialEligibilityError struct {
	AuctionID int64
	Requested []int64
	Found     []int64
	Missing   []int64
}

func (e *PartialEligibilityError) Error() string {
	if len(e.Requested) == 0 {
		return "no participants requested"
	}
	return fmt.Sprintf("participants %v are inactive or have no active request (requested %d, eligible %d)",
		e.Missing, len(e.Requested), len(e.Found))
}

func (e *PartialEligibilityError) Unwrap() error { return ErrPartialEligibility }

// PersistenceError wraps a storage failure. It matches both ErrPersistence
// and the underlying driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPersistence}
	}
	return []error{ErrPersistence, e.Err}
}

// NewPersistence wraps err unless it already carries a domain classification.
func NewPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// AuthError reports a missing or rejected session or credential.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// IsDomain reports whether err has already been classified.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPartialEligibility) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrUnauthorized)
}
