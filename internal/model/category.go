package model

import "strings"

// Category is the kind of reminder an objective qualifies for on a given day.
type Category string

const (
	CategoryDueToday         Category = "DueToday"
	CategoryDueTomorrow      Category = "DueTomorrow"
	CategoryThreeDayReminder Category = "ThreeDayReminder"
	CategoryOverdueWeekly    Category = "OverdueWeekly"
	CategoryCompleted        Category = "Completed"
	CategoryNoAction         Category = "NoAction"
)

// AllCategories lists every category that produces an email.
var AllCategories = []Category{
	CategoryDueToday,
	CategoryDueTomorrow,
	CategoryThreeDayReminder,
	CategoryOverdueWeekly,
	CategoryCompleted,
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Sends reports whether the category results in an email.
func (c Category) Sends() bool {
	return c != CategoryNoAction && c != ""
}

// ParseCategory returns the category with the given name, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	if strings.EqualFold(s, string(CategoryNoAction)) {
		return CategoryNoAction, true
	}
	return "", false
}
