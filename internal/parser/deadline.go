// Package parser turns user-typed deadlines into calendar dates.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/imparable/imparable/internal/progress"
)

// relativeRegex matches relative day expressions like "+3d" or "+2w".
var relativeRegex = regexp.MustCompile(`^\+(\d+)([dw])$`)

// ParseDeadline parses a deadline expression into the start of its day in loc.
// Supports formats like:
//   - "+3d", "+2w" (relative)
//   - "next friday", "tomorrow", "in 2 weeks" (natural language)
//   - "2026-01-15" (ISO date)
//
// Past dates are accepted so existing objectives can be entered late.
func ParseDeadline(input string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, NewDeadlineError(input)
	}

	// Check for relative day format (+3d, +2w)
	if match := relativeRegex.FindStringSubmatch(input); match != nil {
		return parseRelativeDeadline(match[1], match[2], now, loc)
	}

	if t, err := time.ParseInLocation(time.DateOnly, input, loc); err == nil {
		return t, nil
	}

	// Use go-dateparser for natural language parsing
	cfg := &dateparser.Configuration{
		CurrentTime:         now.In(loc),
		DefaultTimezone:     loc,
		PreferredDateSource: dateparser.Future,
	}

	result, err := dateparser.Parse(cfg, input)
	if err != nil || result.Time.IsZero() {
		return time.Time{}, NewDeadlineError(input)
	}

	return progress.Midnight(result.Time, loc), nil
}

// parseRelativeDeadline parses relative day expressions.
func parseRelativeDeadline(numStr, unit string, now time.Time, loc *time.Location) (time.Time, error) {
	num, _ := strconv.Atoi(numStr)
	if num <= 0 {
		return time.Time{}, fmt.Errorf("invalid offset %q: must be positive", numStr)
	}

	days := num
	switch unit {
	case "d":
	case "w":
		days = num * 7
	default:
		return time.Time{}, fmt.Errorf("invalid time unit: %s", unit)
	}

	return progress.Midnight(now, loc).AddDate(0, 0, days), nil
}

// SplitDeadline splits command arguments at the last "by" keyword into the
// objective text and the deadline words: ["Ship", "v1", "by", "next", "friday"]
// gives "Ship v1" and "next friday". Without a keyword the deadline is empty.
func SplitDeadline(args []string) (text, deadline string) {
	for i := len(args) - 2; i > 0; i-- {
		if strings.EqualFold(args[i], "by") {
			return strings.Join(args[:i], " "), strings.Join(args[i+1:], " ")
		}
	}
	return strings.Join(args, " "), ""
}

// FormatDeadline formats a deadline date for display relative to now.
func FormatDeadline(deadline, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	days := progress.DaysUntil(deadline, now, loc)
	local := deadline.In(loc)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 1 && days < 7:
		return local.Format("Monday")
	case local.Year() == now.In(loc).Year():
		return local.Format("Mon, Jan 2")
	default:
		return local.Format("Mon, Jan 2 2006")
	}
}

// FormatDaysLeft describes a day count from DaysUntil.
func FormatDaysLeft(days int) string {
	switch {
	case days == 0:
		return "due today"
	case days == 1:
		return "due tomorrow"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	case days == -1:
		return "overdue by 1 day"
	default:
		return fmt.Sprintf("overdue by %d days", -days)
	}
}
