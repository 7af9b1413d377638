// Package progress computes how far an objective has come, both by
// milestones checked off and by time spent against its deadline.
package progress

import (
	"math"
	"time"

	"github.com/imparable/imparable/internal/model"
)

// Day is one calendar day.
const Day = 24 * time.Hour

// CreatedFallback is assumed as the runway for objectives without a creation time.
const CreatedFallback = 30 * Day

// TimeProgress is the share of an objective's time window already used.
type TimeProgress struct {
	Progress  float64 `json:"progress"`
	DaysLeft  int     `json:"daysLeft"`
	IsOverdue bool    `json:"isOverdue"`
}

// CompletionFraction returns the percentage of completed milestones in [0,100].
// An empty or nil list is 0%.
func CompletionFraction(milestones []model.Milestone) float64 {
	if len(milestones) == 0 {
		return 0
	}
	done := 0
	for _, m := range milestones {
		if m.Completed {
			done++
		}
	}
	return 100 * float64(done) / float64(len(milestones))
}

// IsComplete reports whether every milestone is done.
// An objective without milestones is never complete.
func IsComplete(milestones []model.Milestone) bool {
	return CompletionFraction(milestones) >= 100
}

// Round converts a percentage into the integer shown to users.
func Round(p float64) int {
	return int(math.Round(p))
}

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysUntil returns the number of calendar days from now until deadline, both
// taken at midnight in loc. Zero is due today and negative is overdue.
//
// The difference is counted on calendar dates rather than elapsed hours, so a
// day that is 23 or 25 hours long because of a DST switch still counts as one.
func DaysUntil(deadline, now time.Time, loc *time.Location) int {
	d := dateUTC(deadline, loc)
	n := dateUTC(now, loc)
	return int(math.Ceil(d.Sub(n).Hours() / 24))
}

func dateUTC(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TimeElapsed reports how much of the window between createdAt and deadline
// has passed at now. It returns nil when there is no deadline. A missing
// createdAt is taken as CreatedFallback before the deadline.
func TimeElapsed(createdAt, deadline *time.Time, now time.Time, loc *time.Location) *TimeProgress {
	if deadline == nil || deadline.IsZero() {
		return nil
	}

	created := deadline.Add(-CreatedFallback)
	if createdAt != nil && !createdAt.IsZero() {
		created = *createdAt
	}

	daysLeft := DaysUntil(*deadline, now, loc)

	total := deadline.Sub(created)
	if total <= 0 {
		return &TimeProgress{Progress: 100, DaysLeft: daysLeft, IsOverdue: true}
	}

	elapsed := now.Sub(created)
	p := float64(elapsed) / float64(total) * 100
	p = math.Max(0, math.Min(100, p))

	return &TimeProgress{
		Progress:  p,
		DaysLeft:  daysLeft,
		IsOverdue: daysLeft < 0,
	}
}
