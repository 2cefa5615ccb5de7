// Package domainerrors defines the error model shared by every service.
//
// An *Error carries a Code (the category used for transport mapping) and an
// optional Reason (the specific failure kind, e.g. "already_member"). Package
// level kinds created with NewKind can be matched with errors.Is:
//
//	var ErrAlreadyMember = dErrors.NewKind(dErrors.CodeInvalidState, "already_member", "already a member")
//
//	if errors.Is(err, ErrAlreadyMember) { ... }
//
// Categories can be checked with HasCode regardless of reason.
package domainerrors

import (
	"errors"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// CodeValidation covers rejected configuration or arguments.
	CodeValidation Code = "validation_error"
	// CodeInvalidState covers operations that are invalid for the entity's current state.
	CodeInvalidState Code = "invalid_state"
	// CodeForbidden covers callers that are not allowed to perform an operation.
	CodeForbidden Code = "forbidden"
	// CodeInsufficientFunds covers token transfer failures (balance or allowance).
	CodeInsufficientFunds Code = "insufficient_funds"

	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Reason  string
	Message string
	Err     error
}

// New creates an error with a code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewKind creates a reusable error kind. Kinds are compared by Reason.
func NewKind(code Code, reason, msg string) *Error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// The reason of a wrapped *Error is preserved so errors.Is keeps matching.
func Wrap(err error, code Code, msg string) *Error {
	e := &Error{Code: code, Message: msg, Err: err}
	var inner *Error
	if errors.As(err, &inner) {
		e.Reason = inner.Reason
	}
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same error kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return t.Reason != "" && e.Reason == t.Reason
}

// WithMessage returns a copy of the kind with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// HasCode reports whether the outermost domain error in the chain has the code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf returns the reason of the outermost domain error, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
