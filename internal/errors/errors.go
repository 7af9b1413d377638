// Package errors provides consistent error types for Imparable.
// It defines three main categories: UserError (fixable by the caller), SystemError
// (storage or transport issues), and RecoverableError (can be retried on a later run).
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common conditions.
var (
	ErrNoDeadline        = errors.New("objective has no deadline")
	ErrMissingRecipient  = errors.New("objective owner has no email")
	ErrDispatchFailure   = errors.New("email dispatch failed")
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrCommentNotFound   = errors.New("comment not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrForbidden         = errors.New("not allowed for this user")
	ErrInvalidIndex      = errors.New("milestone index out of range")
	ErrInvalidCategory   = errors.New("unknown email category")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrTimeout           = errors.New("operation timed out")
)

// UserError represents an error the caller can fix.
// Examples: invalid email, empty objective text, missing query parameter.
type UserError struct {
	Message    string // What happened
	Reason     string // Why it happened (optional)
	Suggestion string // How to fix it
	Field      string // The field/input that caused the error (optional)
	Value      string // The invalid value (optional)
}

func (e *UserError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s: '%s'", e.Message, e.Value)
	}
	return e.Message
}

// NewUserError creates a new UserError.
func NewUserError(message, suggestion string) *UserError {
	return &UserError{
		Message:    message,
		Suggestion: suggestion,
	}
}

// NewUserErrorWithField creates a new UserError with field context.
func NewUserErrorWithField(field, value, message, suggestion string) *UserError {
	return &UserError{
		Message:    message,
		Field:      field,
		Value:      value,
		Suggestion: suggestion,
	}
}

// SystemError represents a failure in a collaborator the caller cannot fix,
// such as the document store or the mail transport being unreachable.
type SystemError struct {
	Message string
	Cause   error
	Op      string
}

func (e *SystemError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s during %s", e.Message, e.Op)
	}
	return e.Message
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}

// NewSystemError creates a new SystemError.
func NewSystemError(message string, cause error) *SystemError {
	return &SystemError{Message: message, Cause: cause}
}

// NewSystemErrorWithOp creates a new SystemError with operation context.
func NewSystemErrorWithOp(op, message string, cause error) *SystemError {
	return &SystemError{Message: message, Cause: cause, Op: op}
}

// RecoverableError represents a failure that a later run may not hit again.
// A failed email dispatch is reported this way: the run records it and moves on.
type RecoverableError struct {
	Message string
	Cause   error
}

func (e *RecoverableError) Error() string {
	return e.Message
}

func (e *RecoverableError) Unwrap() error {
	return e.Cause
}

// NewDispatchError wraps a transport failure for a single recipient.
// The result matches ErrDispatchFailure and the transport error.
func NewDispatchError(recipient string, cause error) *RecoverableError {
	return &RecoverableError{
		Message: fmt.Sprintf("send to %s: %v", recipient, cause),
		Cause:   errors.Join(ErrDispatchFailure, cause),
	}
}

// IsUserError checks if an error is a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IsSystemError checks if an error is a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// IsRecoverableError checks if an error is a RecoverableError.
func IsRecoverableError(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}

// AsUserError extracts a UserError from an error chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	ok := errors.As(err, &ue)
	return ue, ok
}

// IsNotFound reports whether err means a looked-up record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectiveNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCommentNotFound)
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// New is errors.New.
func New(text string) error { return errors.New(text) }

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted additional context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
