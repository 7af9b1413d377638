package progress

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imparable/imparable/internal/model"
)

func milestones(done, total int) []model.Milestone {
	ms := make([]model.Milestone, total)
	for i := range ms {
		ms[i] = model.Milestone{Title: fmt.Sprintf("m%d", i), Completed: i < done}
	}
	return ms
}

func tp(t time.Time) *time.Time { return &t }

// =============================================================================
// CompletionFraction
// =============================================================================

func TestCompletionFraction(t *testing.T) {
	tests := []struct {
		name string
		ms   []model.Milestone
		want float64
	}{
		{"nil", nil, 0},
		{"empty", []model.Milestone{}, 0},
		{"none done", milestones(0, 3), 0},
		{"half", milestones(2, 4), 50},
		{"one of three", milestones(1, 3), 100.0 / 3},
		{"all", milestones(5, 5), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompletionFraction(tt.ms)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestCompletionFractionBounds(t *testing.T) {
	for total := 0; total <= 12; total++ {
		for done := 0; done <= total; done++ {
			got := CompletionFraction(milestones(done, total))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
}

func TestIsComplete(t *testing.T) {
	assert.False(t, IsComplete(nil))
	assert.False(t, IsComplete(milestones(2, 3)))
	assert.True(t, IsComplete(milestones(3, 3)))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33, Round(100.0/3))
	assert.Equal(t, 67, Round(200.0/3))
	assert.Equal(t, 50, Round(50))
	assert.Equal(t, 13, Round(12.5))
}

// =============================================================================
// DaysUntil
// =============================================================================

func TestDaysUntil(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 17, 45, 0, 0, loc)

	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"same day earlier", time.Date(2026, 3, 10, 1, 0, 0, 0, loc), 0},
		{"same day later", time.Date(2026, 3, 10, 23, 59, 0, 0, loc), 0},
		{"tomorrow morning", time.Date(2026, 3, 11, 0, 30, 0, 0, loc), 1},
		{"three days", time.Date(2026, 3, 13, 12, 0, 0, 0, loc), 3},
		{"yesterday", time.Date(2026, 3, 9, 23, 0, 0, 0, loc), -1},
		{"two weeks ago", time.Date(2026, 2, 24, 8, 0, 0, 0, loc), -14},
		{"across month", time.Date(2026, 4, 1, 0, 0, 0, 0, loc), 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.deadline, now, loc))
		})
	}
}

func TestDaysUntilAntisymmetric(t *testing.T) {
	loc := time.UTC
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)
	for offset := -40; offset <= 40; offset++ {
		d := base.AddDate(0, 0, offset)
		assert.Equal(t, DaysUntil(d, base, loc), -DaysUntil(base, d, loc))
		assert.Equal(t, offset, DaysUntil(d, base, loc))
	}
}

func TestDaysUntilReferenceTimezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 23:30 UTC on the 9th is already the 10th in Madrid.
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysUntil(deadline, now, madrid))
	assert.Equal(t, 1, DaysUntil(deadline, now, time.UTC))
}

func TestDaysUntilAcrossDST(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// Clocks go forward on 2026-03-29 and back on 2026-10-25.
	assert.Equal(t, 1, DaysUntil(
		time.Date(2026, 3, 30, 9, 0, 0, 0, madrid),
		time.Date(2026, 3, 29, 9, 0, 0, 0, madrid), madrid))
	assert.Equal(t, 1, DaysUntil(
		time.Date(2026, 10, 26, 9, 0, 0, 0, madrid),
		time.Date(2026, 10, 25, 9, 0, 0, 0, madrid), madrid))
}

func TestMidnight(t *testing.T) {
	got := Midnight(time.Date(2026, 5, 4, 13, 2, 3, 4, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), got)
}

// =============================================================================
// TimeElapsed
// =============================================================================

func TestTimeElapsed(t *testing.T) {
	loc := time.UTC
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)
	deadline := time.Date(2026, 1, 11, 0, 0, 0, 0, loc)

	t.Run("no deadline", func(t *testing.T) {
		assert.Nil(t, TimeElapsed(tp(created), nil, created, loc))
	})

	t.Run("halfway", func(t *testing.T) {
		got := TimeElapsed(tp(created), tp(deadline), time.Date(2026, 1, 6, 0, 0, 0, 0, loc), loc)
		require.NotNil(t, got)
		assert.InDelta(t, 50, got.Progress, 1e-9)
		assert.Equal(t, 5, got.DaysLeft)
		assert.False(t, got.IsOverdue)
	})

	t.Run("before creation clamps to zero", func(t *testing.T) {
		got := TimeElapsed(tp(created), tp(deadline), created.AddDate(0, 0, -3), loc)
		assert.Equal(t, 0.0, got.Progress)
	})

	t.Run("overdue clamps to hundred", func(t *testing.T) {
		got := TimeElapsed(tp(created), tp(deadline), deadline.AddDate(0, 0, 2), loc)
		assert.Equal(t, 100.0, got.Progress)
		assert.Equal(t, -2, got.DaysLeft)
		assert.True(t, got.IsOverdue)
	})

	t.Run("missing created uses fallback", func(t *testing.T) {
		got := TimeElapsed(nil, tp(deadline), deadline.Add(-15*Day), loc)
		assert.InDelta(t, 50, got.Progress, 1e-9)
	})

	t.Run("deadline at creation", func(t *testing.T) {
		got := TimeElapsed(tp(deadline), tp(deadline), created, loc)
		assert.Equal(t, 100.0, got.Progress)
		assert.True(t, got.IsOverdue)
	})

	t.Run("deadline before creation", func(t *testing.T) {
		got := TimeElapsed(tp(deadline.Add(Day)), tp(deadline), created, loc)
		assert.Equal(t, 100.0, got.Progress)
		assert.True(t, got.IsOverdue)
	})
}
