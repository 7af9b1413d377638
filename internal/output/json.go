package output

import (
	"time"

	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/progress"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
	Location *time.Location
	Now      func() time.Time
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f, Location: time.Local, Now: time.Now}
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

// ObjectiveOutput is an objective with its derived progress.
type ObjectiveOutput struct {
	ID              string                 `json:"id"`
	OwnerID         string                 `json:"ownerId"`
	OwnerEmail      string                 `json:"ownerEmail,omitempty"`
	Text            string                 `json:"text"`
	Milestones      []model.Milestone      `json:"milestones"`
	Comments        []model.Comment        `json:"comments"`
	Deadline        *string                `json:"deadline"`
	CreatedAt       *time.Time             `json:"createdAt,omitempty"`
	ProgressPercent int                    `json:"progressPercent"`
	DaysLeft        *int                   `json:"daysLeft"`
	TimeProgress    *progress.TimeProgress `json:"timeProgress,omitempty"`
}

// NewObjectiveOutput derives progress for o as of now in loc.
func NewObjectiveOutput(o *model.Objective, owner *model.User, now time.Time, loc *time.Location) *ObjectiveOutput {
	o.Normalize()
	out := &ObjectiveOutput{
		ID:              o.ID,
		OwnerID:         o.OwnerID,
		Text:            o.Text,
		Milestones:      o.Milestones,
		Comments:        o.Comments,
		CreatedAt:       o.CreatedAt,
		ProgressPercent: progress.Round(progress.CompletionFraction(o.Milestones)),
	}
	if owner != nil {
		out.OwnerEmail = owner.Email
	}
	if o.HasDeadline() {
		d := FormatDate(*o.Deadline, loc)
		days := progress.DaysUntil(*o.Deadline, now, loc)
		out.Deadline = &d
		out.DaysLeft = &days
		out.TimeProgress = progress.TimeElapsed(o.CreatedAt, o.Deadline, now, loc)
	}
	return out
}

// ObjectivesResponse represents the objectives list output in JSON.
type ObjectivesResponse struct {
	Objectives []*ObjectiveOutput `json:"objectives"`
	Count      int                `json:"count"`
}

// NewObjectivesResponse converts objectives; owners maps user id to user.
func NewObjectivesResponse(objectives []*model.Objective, owners map[string]*model.User, now time.Time, loc *time.Location) *ObjectivesResponse {
	outs := make([]*ObjectiveOutput, len(objectives))
	for i, o := range objectives {
		outs[i] = NewObjectiveOutput(o, owners[o.OwnerID], now, loc)
	}
	return &ObjectivesResponse{Objectives: outs, Count: len(outs)}
}

// UsersResponse represents the users list output in JSON.
type UsersResponse struct {
	Users []*model.User `json:"users"`
	Count int           `json:"count"`
}

// PrintReport outputs a deadline-check report.
func (j *JSONFormatter) PrintReport(r model.RunReport) error {
	if r.Results == nil {
		r.Results = []model.ResultRecord{}
	}
	return j.JSON(r)
}

// PrintObjective outputs one objective.
func (j *JSONFormatter) PrintObjective(o *model.Objective, owner *model.User) error {
	return j.JSON(NewObjectiveOutput(o, owner, j.Now(), j.Location))
}

// PrintObjectives outputs a list of objectives.
func (j *JSONFormatter) PrintObjectives(objectives []*model.Objective, owners map[string]*model.User) error {
	return j.JSON(NewObjectivesResponse(objectives, owners, j.Now(), j.Location))
}

// PrintUsers outputs a list of users.
func (j *JSONFormatter) PrintUsers(users []*model.User) error {
	if users == nil {
		users = []*model.User{}
	}
	return j.JSON(UsersResponse{Users: users, Count: len(users)})
}

// PrintMessage outputs an acknowledgement.
func (j *JSONFormatter) PrintMessage(message, deliveryID string) error {
	return j.JSON(MessageResponse{Success: true, Message: message, DeliveryID: deliveryID})
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(errMsg, message string) error {
	return j.JSON(ErrorResponse{Error: errMsg, Message: message})
}
