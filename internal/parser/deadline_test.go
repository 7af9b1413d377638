package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday 2026-03-10, 15:30 UTC.
var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func TestParseDeadline(t *testing.T) {
	t.Run("empty_string_returns_error", func(t *testing.T) {
		_, err := ParseDeadline("", now, time.UTC)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadline")
	})

	t.Run("whitespace_returns_error", func(t *testing.T) {
		_, err := ParseDeadline("   ", now, time.UTC)
		assert.Error(t, err)
	})

	t.Run("iso_date", func(t *testing.T) {
		d, err := ParseDeadline("2026-06-30", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("iso_date_in_past", func(t *testing.T) {
		d, err := ParseDeadline("2026-01-02", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, 2, d.Day())
	})

	t.Run("iso_date_uses_location", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		d, err := ParseDeadline("2026-06-30", now, loc)
		require.NoError(t, err)
		assert.Equal(t, loc, d.Location())
		assert.Zero(t, d.Hour())
	})
}

func TestParseDeadlineRelative(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"+1d", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"+3d", time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"+2w", time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)},
		{"+30d", time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDeadline(tt.input, now, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeadlineNatural(t *testing.T) {
	t.Run("tomorrow", func(t *testing.T) {
		got, err := ParseDeadline("tomorrow", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("in_2_weeks", func(t *testing.T) {
		got, err := ParseDeadline("in 2 weeks", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("truncated_to_midnight", func(t *testing.T) {
		got, err := ParseDeadline("tomorrow 5pm", now, time.UTC)
		require.NoError(t, err)
		assert.Zero(t, got.Hour())
		assert.Equal(t, 11, got.Day())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDeadline("when pigs fly", now, time.UTC)
		var pe *TimeParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "deadline", pe.Field)
	})
}

func TestSplitDeadline(t *testing.T) {
	tests := []struct {
		args         []string
		wantText     string
		wantDeadline string
	}{
		{[]string{"Ship", "v1", "by", "next", "friday"}, "Ship v1", "next friday"},
		{[]string{"Stand", "by", "me", "BY", "+3d"}, "Stand by me", "+3d"},
		{[]string{"Learn", "Go"}, "Learn Go", ""},
		{[]string{"by", "tomorrow"}, "by tomorrow", ""},
		{[]string{"Finish", "by"}, "Finish by", ""},
		{nil, "", ""},
	}
	for _, tt := range tests {
		text, deadline := SplitDeadline(tt.args)
		assert.Equal(t, tt.wantText, text)
		assert.Equal(t, tt.wantDeadline, deadline)
	}
}

func TestParseRelativeDeadlineInvalid(t *testing.T) {
	t.Run("zero_value", func(t *testing.T) {
		_, err := parseRelativeDeadline("0", "d", now, time.UTC)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positive")
	})

	t.Run("invalid_unit", func(t *testing.T) {
		_, err := parseRelativeDeadline("5", "x", now, time.UTC)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid time unit")
	})
}

func TestFormatDeadline(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2026, 3, 10+offset, 0, 0, 0, 0, time.UTC)
	}

	assert.Equal(t, "Today", FormatDeadline(day(0), now, time.UTC))
	assert.Equal(t, "Tomorrow", FormatDeadline(day(1), now, time.UTC))
	assert.Equal(t, "Yesterday", FormatDeadline(day(-1), now, time.UTC))
	assert.Equal(t, "Friday", FormatDeadline(day(3), now, time.UTC))
	assert.Equal(t, "Tue, Mar 24", FormatDeadline(day(14), now, time.UTC))
	assert.Equal(t, "Fri, Jan 1 2027", FormatDeadline(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), now, time.UTC))
}

func TestFormatDaysLeft(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "due today"},
		{1, "due tomorrow"},
		{3, "in 3 days"},
		{-1, "overdue by 1 day"},
		{-14, "overdue by 14 days"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDaysLeft(tt.days))
	}
}
