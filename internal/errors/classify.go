package errors

import (
	"context"
	"errors"
	"net/http"
	"syscall"
)

// Category represents the type of error for display and handling purposes.
type Category int

const (
	// CategoryUnknown is the default for unclassified errors.
	CategoryUnknown Category = iota
	// CategoryUser indicates an error the caller can fix.
	CategoryUser
	// CategorySystem indicates a failing collaborator (store, transport).
	CategorySystem
	// CategoryRecoverable indicates an error a later run may not hit.
	CategoryRecoverable
	// CategoryNotFound indicates a missing record.
	CategoryNotFound
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRecoverable:
		return "recoverable"
	case CategoryNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if IsUserError(err) || errors.Is(err, ErrInvalidIndex) || errors.Is(err, ErrInvalidCategory) {
		return CategoryUser
	}
	if IsNotFound(err) {
		return CategoryNotFound
	}
	if IsRecoverableError(err) || isRecoverablePattern(err) {
		return CategoryRecoverable
	}
	if IsSystemError(err) || errors.Is(err, ErrStoreUnavailable) {
		return CategorySystem
	}

	return CategoryUnknown
}

func isRecoverablePattern(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ETIMEDOUT, syscall.ECONNREFUSED, syscall.ECONNRESET:
			return true
		}
	}

	return false
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	}
	switch Classify(err) {
	case CategoryUser:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FormatByCategory returns a message suited for the terminal.
func FormatByCategory(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	switch Classify(err) {
	case CategoryUser:
		if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
			return msg + "\n\nTry: " + ue.Suggestion
		}
		return msg
	case CategorySystem:
		return "System error: " + msg
	case CategoryRecoverable:
		return msg + " (will be retried on the next run)"
	default:
		return msg
	}
}
