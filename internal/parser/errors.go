package parser

import (
	"fmt"
	"strings"

	"github.com/imparable/imparable/internal/errors"
)

// TimeParseError represents a deadline parsing error with helpful suggestions.
type TimeParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// DeadlineExamples provides example deadline formats.
var DeadlineExamples = []string{
	"2026-06-30",
	"+3d",
	"+2w",
	"tomorrow",
	"next friday",
	"in 2 weeks",
}

// NewDeadlineError creates a deadline parse error with standard examples.
func NewDeadlineError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "deadline",
		Message:    "could not parse deadline",
		Examples:   DeadlineExamples,
		Suggestion: "Deadlines can be a date (2026-06-30), relative (+3d) or natural (next friday).",
	}
}

// ToUserError converts a TimeParseError to a UserError for consistent handling.
func (e *TimeParseError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if len(e.Examples) > 0 && suggestion == "" {
		suggestion = fmt.Sprintf("Try: %s", strings.Join(e.Examples[:min(3, len(e.Examples))], ", "))
	}

	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// AsUserError converts any deadline parse failure into a UserError.
func AsUserError(err error) error {
	var pe *TimeParseError
	if errors.As(err, &pe) {
		return pe.ToUserError()
	}
	if err != nil {
		return errors.NewUserError(err.Error(), "Use a date like 2026-06-30 or an offset like +3d")
	}
	return nil
}
