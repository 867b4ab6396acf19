package engine

import (
	"errors"
	"fmt"
)

// Error is a failure reported by a reconciliation or assignment operation.
//
// No Error is fatal: the operation that returns one leaves its state
// unchanged (or, for persistence failures, continues in memory).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Serial is the affected serial key, if any.
	Serial string

	// LineID is the affected line item, if any.
	LineID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeAssignmentPrecondition means a commit had no selection or no target.
	ErrCodeAssignmentPrecondition ErrorCode = "ASSIGNMENT_PRECONDITION"

	// ErrCodePersistenceUnavailable means the key/value collaborator failed.
	ErrCodePersistenceUnavailable ErrorCode = "PERSISTENCE_UNAVAILABLE"

	// ErrCodeUnknownSerial means a serial is not among the remaining ones.
	ErrCodeUnknownSerial ErrorCode = "UNKNOWN_SERIAL"

	// ErrCodeUnknownLine means a line item id is not known to the host.
	ErrCodeUnknownLine ErrorCode = "UNKNOWN_LINE"

	// ErrCodeInvalidTransition means the workflow is in the wrong state.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Serial != "" && e.LineID != "":
		msg += fmt.Sprintf(" (serial=%s, line=%s)", e.Serial, e.LineID)
	case e.Serial != "":
		msg += fmt.Sprintf(" (serial=%s)", e.Serial)
	case e.LineID != "":
		msg += fmt.Sprintf(" (line=%s)", e.LineID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsAssignmentPrecondition reports whether err is a rejected commit.
// Uses errors.As to handle wrapped errors.
func IsAssignmentPrecondition(err error) bool {
	return hasCode(err, ErrCodeAssignmentPrecondition)
}

// IsPersistenceError reports whether err came from the key/value collaborator.
func IsPersistenceError(err error) bool {
	return hasCode(err, ErrCodePersistenceUnavailable)
}

// IsUnknownLine reports whether err names a line the host does not have.
func IsUnknownLine(err error) bool {
	return hasCode(err, ErrCodeUnknownLine)
}

// IsUnknownSerial reports whether err names a serial that is not remaining.
func IsUnknownSerial(err error) bool {
	return hasCode(err, ErrCodeUnknownSerial)
}

// IsInvalidTransition reports whether err was caused by the workflow state.
func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrCodeInvalidTransition)
}

// NewPreconditionError creates an Error for a commit that cannot proceed.
func NewPreconditionError(message string) *Error {
	return &Error{Code: ErrCodeAssignmentPrecondition, Message: message}
}

// NewPersistenceError wraps a key/value failure for key.
func NewPersistenceError(op, key string, err error) *Error {
	return &Error{
		Code:    ErrCodePersistenceUnavailable,
		Message: fmt.Sprintf("%s %q", op, key),
		Err:     err,
	}
}

// NewUnknownLineError creates an Error for a line id the host does not have.
func NewUnknownLineError(lineID string) *Error {
	return &Error{Code: ErrCodeUnknownLine, Message: "line item not found", LineID: lineID}
}

// NewUnknownSerialError creates an Error for a serial outside the remaining set.
func NewUnknownSerialError(serial string) *Error {
	return &Error{Code: ErrCodeUnknownSerial, Message: "serial is not awaiting assignment", Serial: serial}
}

// NewTransitionError creates an Error for an operation not allowed in state.
func NewTransitionError(op string, state State) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s while %s", op, state),
	}
}
