// Package apierr defines the error taxonomy shared by every layer that can
// fail a request. The set of variants is closed: only the types declared here
// implement Error.
//
// Variants carry data only. Turning them into a wire payload is the job of
// package problem; the Description of a CodeError or MultipleErrors is for
// logs and is never shown to clients (they see the registry message instead).
package apierr

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// Error is implemented by every taxonomy variant.
type Error interface {
	error
	// Description is the variant's diagnostic text without any wrapped cause.
	Description() string
	apiError()
}

// NotFound reports that a referenced entity does not exist.
type NotFound struct{}

func (NotFound) Error() string       { return "Message not found" }
func (NotFound) Description() string { return "Message not found" }
func (NotFound) apiError()           {}

// BadRequest is an ad hoc client error that is not backed by the registry.
type BadRequest struct {
	Message string
	Code    int
}

func (e BadRequest) Error() string       { return "Invalid input: " + e.Message }
func (e BadRequest) Description() string { return e.Error() }
func (BadRequest) apiError()             {}

// InternalServerError wraps an unexpected failure. Cause is kept for logs.
type InternalServerError struct {
	Cause error
}

const internalDescription = "Internal server error"

func (e InternalServerError) Error() string {
	if e.Cause != nil {
		return internalDescription + ": " + e.Cause.Error()
	}
	return internalDescription
}
func (InternalServerError) Description() string { return internalDescription }
func (e InternalServerError) Unwrap() error     { return e.Cause }
func (InternalServerError) apiError()           {}

// CodeError is a single registry-backed failure.
type CodeError struct {
	Code errcodes.ErrorCode
}

func (e CodeError) Error() string       { return fmt.Sprintf("error code %s", e.Code) }
func (e CodeError) Description() string { return e.Error() }
func (CodeError) apiError()             {}

// MultipleErrors aggregates every failed check of one field, in the order the
// checks were declared. Field and Instance are optional context echoed to the
// client.
type MultipleErrors struct {
	Codes    []errcodes.ErrorCode
	Field    *string
	Instance *string
}

const multipleDescription = "Multiple errors occurred"

func (e MultipleErrors) Error() string {
	if e.Field != nil {
		return fmt.Sprintf("%s on %q: %v", multipleDescription, *e.Field, e.Codes)
	}
	return fmt.Sprintf("%s: %v", multipleDescription, e.Codes)
}
func (MultipleErrors) Description() string { return multipleDescription }
func (MultipleErrors) apiError()           {}

// Convenience constructors.

func NewBadRequest(msg string, code int) error { return BadRequest{Message: msg, Code: code} }
func NewInternal(cause error) error            { return InternalServerError{Cause: cause} }
func NewCode(code errcodes.ErrorCode) error    { return CodeError{Code: code} }
func NewNotFound() error                       { return NotFound{} }

// As extracts the taxonomy variant from err, following wrap chains.
func As(err error) (Error, bool) {
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
