package model

import (
	"fmt"
	"time"
)

// NotificationEvent is one objective's classification within a run.
type NotificationEvent struct {
	ObjectiveID string
	Category    Category
	DaysLeft    int
	Progress    float64
}

// ResultRecord is the per-objective line of a run report.
// EmailCategory is nil when the objective needed no email.
type ResultRecord struct {
	ObjectiveID     string    `json:"objectiveId"`
	ObjectiveText   string    `json:"objectiveText"`
	RecipientEmail  string    `json:"recipientEmail"`
	DaysLeft        int       `json:"daysLeft"`
	ProgressPercent int       `json:"progressPercent"`
	EmailCategory   *Category `json:"emailCategory"`
	EmailSent       bool      `json:"emailSent"`
	DeliveryID      string    `json:"deliveryId,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// RunReport summarizes one deadline check.
type RunReport struct {
	Success         bool           `json:"success"`
	EmailsSent      int            `json:"emailsSent"`
	TotalObjectives int            `json:"totalObjectives"`
	Results         []ResultRecord `json:"results"`
	Timestamp       time.Time      `json:"timestamp"`
	Message         string         `json:"message"`
}

// Failures counts records whose dispatch failed.
func (r *RunReport) Failures() int {
	n := 0
	for _, rec := range r.Results {
		if rec.Error != "" {
			n++
		}
	}
	return n
}

// Notice records that an email of a category went out for an objective on a date.
type Notice struct {
	Key         string    `json:"key"`
	ObjectiveID string    `json:"objective_id"`
	Category    Category  `json:"category"`
	Date        string    `json:"date"`
	SentAt      time.Time `json:"sent_at"`
}

// SetKey sets the database key for this notice.
func (n *Notice) SetKey(key string) {
	n.Key = key
}

// GetKey returns the database key for this notice.
func (n *Notice) GetKey() string {
	return n.Key
}

// GenerateNoticeKey builds the ledger key for (objective, category, date).
func GenerateNoticeKey(objectiveID string, category Category, date string) string {
	return fmt.Sprintf("%s:%s:%s:%s", PrefixNotice, objectiveID, category, date)
}

// NewNotice creates a ledger entry. Date uses the YYYY-MM-DD layout.
func NewNotice(objectiveID string, category Category, date string, sentAt time.Time) *Notice {
	return &Notice{
		Key:         GenerateNoticeKey(objectiveID, category, date),
		ObjectiveID: objectiveID,
		Category:    category,
		Date:        date,
		SentAt:      sentAt,
	}
}
