package scheduler

import "github.com/imparable/imparable/internal/model"

// OverdueInterval is how often an overdue objective is reminded, in days.
const OverdueInterval = 7

// Classify maps days left until a deadline to the reminder due today.
// Overdue objectives are reminded every OverdueInterval days.
func Classify(daysLeft int) model.Category {
	switch {
	case daysLeft == 0:
		return model.CategoryDueToday
	case daysLeft == 1:
		return model.CategoryDueTomorrow
	case daysLeft == 3:
		return model.CategoryThreeDayReminder
	case daysLeft < 0 && -daysLeft%OverdueInterval == 0:
		return model.CategoryOverdueWeekly
	default:
		return model.CategoryNoAction
	}
}
