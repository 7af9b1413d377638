package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/parser"
	"github.com/imparable/imparable/internal/progress"
)

// Styles for CLI output.
var (
	// Colors
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorSuccess = lipgloss.Color("#10B981") // Green

	// Styles
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleObjective = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleComment = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
	Location *time.Location
	Now      func() time.Time
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f, Location: time.Local, Now: time.Now}
}

func (c *CLIFormatter) render(style lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// DaysLeft colors a day count by urgency.
func (c *CLIFormatter) DaysLeft(days int) string {
	text := parser.FormatDaysLeft(days)
	switch {
	case days < 0:
		return c.render(styleError, text)
	case days <= 3:
		return c.render(styleWarning, text)
	default:
		return text
	}
}

// Category formats an email category, "-" when nothing was sent.
func (c *CLIFormatter) Category(cat *model.Category) string {
	if cat == nil {
		return "-"
	}
	return string(*cat)
}

// PrintReport prints the outcome of a deadline check.
func (c *CLIFormatter) PrintReport(r model.RunReport) {
	c.Title(r.Message)
	if len(r.Results) == 0 {
		c.Muted("No objectives with an upcoming deadline.")
		return
	}

	rows := make([]TableRow, 0, len(r.Results))
	for _, rec := range r.Results {
		status := "-"
		switch {
		case rec.Error != "":
			status = c.render(styleError, "failed")
		case rec.EmailSent:
			status = c.render(styleSuccess, "sent")
		}
		rows = append(rows, TableRow{Columns: []string{
			TruncateText(rec.ObjectiveText, 40),
			rec.RecipientEmail,
			parser.FormatDaysLeft(rec.DaysLeft),
			fmt.Sprintf("%d%%", rec.ProgressPercent),
			c.Category(rec.EmailCategory),
			status,
		}})
	}
	c.Println()
	c.PrintTable([]string{"OBJECTIVE", "RECIPIENT", "DEADLINE", "PROGRESS", "EMAIL", "STATUS"}, rows)

	for _, rec := range r.Results {
		if rec.Error != "" {
			c.Error(fmt.Sprintf("%s: %s", rec.ObjectiveText, rec.Error))
		}
	}
	c.Muted(fmt.Sprintf("Checked %s", FormatTime(r.Timestamp, c.Location)))
}

// PrintObjective prints one objective with milestones and comments.
func (c *CLIFormatter) PrintObjective(o *model.Objective, owner *model.User) {
	now := c.Now()
	pct := progress.CompletionFraction(o.Milestones)

	c.Println(c.render(styleObjective, o.Text))
	c.Muted("  id: " + o.ID)
	if owner != nil {
		c.Printf("  Owner: %s\n", owner.Email)
	}
	c.Printf("  Progress: %s %d%% (%d/%d)\n", ProgressBar(pct, 20), progress.Round(pct), o.CompletedCount(), len(o.Milestones))

	if o.HasDeadline() {
		days := progress.DaysUntil(*o.Deadline, now, c.Location)
		c.Printf("  Deadline: %s (%s)\n", parser.FormatDeadline(*o.Deadline, now, c.Location), c.DaysLeft(days))
		if tp := progress.TimeElapsed(o.CreatedAt, o.Deadline, now, c.Location); tp != nil {
			c.Printf("  Time elapsed: %s %d%%\n", ProgressBar(tp.Progress, 20), progress.Round(tp.Progress))
		}
	} else {
		c.Muted("  No deadline")
	}

	if len(o.Milestones) > 0 {
		c.Println()
		for i, m := range o.Milestones {
			box := "[ ]"
			if m.Completed {
				box = c.render(styleSuccess, "[x]")
			}
			c.Printf("  %d. %s %s\n", i, box, m.Title)
		}
	}

	if len(o.Comments) > 0 {
		c.Println()
		c.Println(c.render(styleBold, "  Comments"))
		for _, cm := range o.Comments {
			c.Printf("  %s  %s\n", c.render(styleMuted, FormatDate(cm.CreatedAt, c.Location)+" "+cm.Author), c.render(styleComment, cm.Text))
		}
	}
}

// PrintObjectives prints objectives as a table. owners maps user id to user.
func (c *CLIFormatter) PrintObjectives(objectives []*model.Objective, owners map[string]*model.User) {
	if len(objectives) == 0 {
		c.Muted("No objectives.")
		c.Muted("Use 'imparable objective add <text> --owner <email>' to create one.")
		return
	}

	now := c.Now()
	rows := make([]TableRow, 0, len(objectives))
	for _, o := range objectives {
		deadline := "-"
		if o.HasDeadline() {
			deadline = FormatDate(*o.Deadline, c.Location) + " " + c.DaysLeft(progress.DaysUntil(*o.Deadline, now, c.Location))
		}
		owner := o.OwnerID
		if u := owners[o.OwnerID]; u != nil {
			owner = u.Email
		}
		rows = append(rows, TableRow{Columns: []string{
			shortID(o.ID),
			TruncateText(o.Text, 40),
			owner,
			fmt.Sprintf("%d%%", progress.Round(progress.CompletionFraction(o.Milestones))),
			deadline,
		}})
	}
	c.PrintTable([]string{"ID", "OBJECTIVE", "OWNER", "PROGRESS", "DEADLINE"}, rows)
}

// PrintUsers prints users as a table.
func (c *CLIFormatter) PrintUsers(users []*model.User) {
	if len(users) == 0 {
		c.Muted("No users.")
		return
	}
	rows := make([]TableRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, TableRow{Columns: []string{u.ID, u.Email, string(u.Role)}})
	}
	c.PrintTable([]string{"ID", "EMAIL", "ROLE"}, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// TruncateText shortens s to at most n runes.
func TruncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ProgressBar creates a simple progress bar.
func ProgressBar(percentage float64, width int) string {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < 0 {
		percentage = 0
	}

	filled := int(float64(width) * percentage / 100)
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return bar
}

// TableRow is one line of a table.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && lipgloss.Width(col) > widths[i] {
				widths[i] = lipgloss.Width(col)
			}
		}
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", w-lipgloss.Width(s)) + "  "
	}

	// Print headers
	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(pad(h, widths[i]))
	}
	c.Println(c.render(styleBold, strings.TrimRight(headerLine.String(), " ")))

	// Print separator
	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	// Print rows
	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(pad(col, widths[i]))
			}
		}
		c.Println(strings.TrimRight(rowLine.String(), " "))
	}
}
