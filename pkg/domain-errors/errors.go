// Package domainerrors provides coded domain errors for the authorization
// core. Services construct these at decision points; transports translate
// codes into wire-level responses without inspecting error strings.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeUnauthorized, "token has expired")
//	return dErrors.Wrap(err, dErrors.CodeAuditWrite, "append audit entry")
//
// For infrastructure facts (not found, expired, unavailable) stores return
// pkg/platform/sentinel errors instead; services wrap those into coded
// errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and telemetry.
type Code string

const (
	CodeValidation   Code = "validation"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"

	// CodeAuditWrite marks a failure to persist a compliance-relevant audit
	// entry. Callers on the mutating path must treat it as a denial.
	CodeAuditWrite Code = "audit_write_error"
)

// Error is a domain error with a classification code. The message is for
// internal logs; transports must map the Code, never echo the message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code. Nil errors return the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is so callers aliasing this package don't need a
// second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }
