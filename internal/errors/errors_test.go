package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UserError Tests
// =============================================================================

func TestNewUserError(t *testing.T) {
	err := NewUserError("invalid input", "try again")
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "try again", err.Suggestion)
}

func TestUserErrorError(t *testing.T) {
	t.Run("without_field", func(t *testing.T) {
		err := NewUserError("email is required", "")
		assert.Equal(t, "email is required", err.Error())
	})

	t.Run("with_field", func(t *testing.T) {
		err := NewUserErrorWithField("email", "bad@", "invalid email", "")
		assert.Equal(t, "invalid email: 'bad@'", err.Error())
	})
}

func TestIsUserError(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("context: %w", NewUserError("test", ""))
		assert.True(t, IsUserError(wrapped))
	})

	t.Run("plain", func(t *testing.T) {
		assert.False(t, IsUserError(errors.New("plain error")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, IsUserError(nil))
	})
}

// =============================================================================
// Dispatch Errors
// =============================================================================

func TestNewDispatchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDispatchError("ana@example.com", cause)

	require.ErrorIs(t, err, ErrDispatchFailure)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRecoverableError(err))
	assert.Contains(t, err.Error(), "ana@example.com")
}

func TestSystemErrorUnwrap(t *testing.T) {
	cause := errors.New("disk gone")
	err := NewSystemErrorWithOp("list objectives", "store read failed", cause)

	assert.Equal(t, "store read failed during list objectives", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))

	err := Wrapf(ErrUserNotFound, "lookup %s", "u1")
	assert.Equal(t, "lookup u1: user not found", err.Error())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// =============================================================================
// Classification
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"user", NewUserError("bad", ""), CategoryUser},
		{"invalid index", ErrInvalidIndex, CategoryUser},
		{"objective not found", Wrap(ErrObjectiveNotFound, "get"), CategoryNotFound},
		{"user not found", ErrUserNotFound, CategoryNotFound},
		{"dispatch", NewDispatchError("x@y.z", errors.New("boom")), CategoryRecoverable},
		{"deadline", context.DeadlineExceeded, CategoryRecoverable},
		{"errno", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), CategoryRecoverable},
		{"system", NewSystemError("store", errors.New("io")), CategorySystem},
		{"plain", errors.New("plain"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewUserError("missing email", "")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrObjectiveNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Wrap(ErrForbidden, "delete")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrEmailTaken))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewDispatchError("a@b.c", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestFormatByCategory(t *testing.T) {
	assert.Empty(t, FormatByCategory(nil))
	assert.Equal(t, "bad email\n\nTry: use name@domain", FormatByCategory(NewUserError("bad email", "use name@domain")))
	assert.Equal(t, "System error: store down", FormatByCategory(NewSystemError("store down", nil)))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "user", CategoryUser.String())
	assert.Equal(t, "not_found", CategoryNotFound.String())
	assert.Equal(t, "unknown", Category(99).String())
}
