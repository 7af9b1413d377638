package scheduler

import (
	"context"
	"strings"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/progress"
)

// CompletionNotifier sends the congratulation email for a finished objective.
type CompletionNotifier struct {
	sender  mail.Sender
	appName string
}

// NewCompletionNotifier creates a notifier that delivers through sender.
func NewCompletionNotifier(sender mail.Sender, appName string) *CompletionNotifier {
	return &CompletionNotifier{sender: sender, appName: appName}
}

// SendCompletionNotice emails the Completed notice for objectiveText to email
// and returns the delivery id.
func (n *CompletionNotifier) SendCompletionNotice(ctx context.Context, email, objectiveText string) (string, error) {
	email = strings.TrimSpace(email)
	objectiveText = strings.TrimSpace(objectiveText)
	if email == "" || objectiveText == "" {
		return "", errors.NewUserError("email and objective are required", "pass both the recipient email and the objective text")
	}

	subject, html, err := mail.Render(model.CategoryCompleted, mail.TemplateData{
		ObjectiveText: objectiveText,
		Percent:       100,
		AppName:       n.appName,
	})
	if err != nil {
		return "", err
	}

	id, err := n.sender.Send(ctx, mail.Message{To: email, Subject: subject, HTML: html})
	if err != nil {
		logging.ErrorContext(ctx, "completion notice not delivered",
			logging.KeyRecipient, logging.MaskEmail(email), logging.KeyError, err)
		return "", errors.NewDispatchError(email, err)
	}

	logging.InfoContext(ctx, "completion notice sent",
		logging.KeyRecipient, logging.MaskEmail(email), logging.KeyDeliveryID, id)
	return id, nil
}

// NotifyIfCompleted sends the completion notice when an edit moved an
// objective from unfinished to fully complete. It reports whether a notice
// was sent. wasComplete is the state before the edit.
func (n *CompletionNotifier) NotifyIfCompleted(ctx context.Context, wasComplete bool, o *model.Objective, owner *model.User) (bool, error) {
	if wasComplete || !progress.IsComplete(o.Milestones) {
		return false, nil
	}
	if owner == nil || owner.Email == "" {
		return false, errors.ErrMissingRecipient
	}
	if _, err := n.SendCompletionNotice(ctx, owner.Email, o.Text); err != nil {
		return false, err
	}
	return true, nil
}

// Sample data used by SendTestNotice.
var sampleNotice = mail.TemplateData{
	ObjectiveText: "Objetivo de prueba",
	Percent:       60,
	Days:          3,
}

// SendTestNotice renders category with sample data and sends it to email.
// It lets operators check templates and transport settings.
func (n *CompletionNotifier) SendTestNotice(ctx context.Context, email string, category model.Category) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.NewUserError("email is required", "pass the recipient email")
	}
	if !category.Sends() {
		return "", errors.NewUserErrorWithField("category", string(category), "Unknown email category", "Use one of: DueToday, DueTomorrow, ThreeDayReminder, OverdueWeekly, Completed")
	}

	data := sampleNotice
	data.AppName = n.appName
	subject, html, err := mail.Render(category, data)
	if err != nil {
		return "", err
	}

	id, err := n.sender.Send(ctx, mail.Message{To: email, Subject: "[TEST] " + subject, HTML: html})
	if err != nil {
		return "", errors.NewDispatchError(email, err)
	}
	logging.InfoContext(ctx, "test notice sent",
		logging.KeyRecipient, logging.MaskEmail(email), logging.KeyCategory, category, logging.KeyDeliveryID, id)
	return id, nil
}
