package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/progress"
)

// Store is what a deadline check reads from and records into.
type Store interface {
	ListObjectives(ctx context.Context) ([]*model.Objective, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	MarkNotified(ctx context.Context, n *model.Notice) (bool, error)
	UnmarkNotified(ctx context.Context, n *model.Notice) error
}

// Options configures a DeadlineChecker.
type Options struct {
	// Location is the reference timezone for calendar days. Default: time.Local
	Location *time.Location
	// Workers bounds how many objectives are processed at once. Default: 4
	Workers int
	// Dedup skips reminders already recorded for the same objective, category and day.
	Dedup bool
	// AppName is shown in email bodies.
	AppName string
	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// DeadlineChecker classifies objectives by deadline proximity and sends the
// matching reminder emails.
type DeadlineChecker struct {
	store   Store
	sender  mail.Sender
	loc     *time.Location
	workers int
	dedup   bool
	appName string
	clock   func() time.Time
}

// NewDeadlineChecker creates a checker. store may be nil when only Run is used
// and Dedup is off.
func NewDeadlineChecker(store Store, sender mail.Sender, opts Options) *DeadlineChecker {
	c := &DeadlineChecker{
		store:   store,
		sender:  sender,
		loc:     opts.Location,
		workers: opts.Workers,
		dedup:   opts.Dedup && store != nil,
		appName: opts.AppName,
		clock:   opts.Clock,
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.workers < 1 {
		c.workers = 4
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// Check snapshots objectives and users from the store and runs one pass.
func (c *DeadlineChecker) Check(ctx context.Context) (model.RunReport, error) {
	objectives, err := c.store.ListObjectives(ctx)
	if err != nil {
		return failedReport(c.clock()), errors.NewSystemErrorWithOp("list objectives", "store read failed", err)
	}
	users, err := c.store.ListUsers(ctx)
	if err != nil {
		return failedReport(c.clock()), errors.NewSystemErrorWithOp("list users", "store read failed", err)
	}

	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return c.Run(ctx, objectives, byID), nil
}

func failedReport(now time.Time) model.RunReport {
	return model.RunReport{Results: []model.ResultRecord{}, Timestamp: now}
}

// outcome is one worker's result for one objective.
type outcome struct {
	record *model.ResultRecord
	sent   bool
}

// Run processes every objective against usersByID and returns the report.
// Objectives are handled concurrently; the report keeps input order.
// A failed delivery is recorded on its objective and does not stop the run.
// Cancelling ctx stops picking up new objectives.
func (c *DeadlineChecker) Run(ctx context.Context, objectives []*model.Objective, usersByID map[string]*model.User) model.RunReport {
	now := c.clock()
	start := time.Now()
	outcomes := make([]outcome, len(objectives))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(c.workers, max(len(objectives), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = c.process(ctx, objectives[i], usersByID, now)
			}
		}()
	}

feed:
	for i := range objectives {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	report := model.RunReport{
		Success:   true,
		Results:   make([]model.ResultRecord, 0, len(objectives)),
		Timestamp: now,
	}
	for _, o := range outcomes {
		if o.record == nil {
			continue
		}
		report.Results = append(report.Results, *o.record)
		if o.sent {
			report.EmailsSent++
		}
	}
	report.TotalObjectives = len(report.Results)
	report.Message = fmt.Sprintf("Deadline check completed. Emails sent: %d", report.EmailsSent)

	logging.InfoContext(ctx, "deadline check finished",
		logging.KeyCount, len(objectives),
		"records", report.TotalObjectives,
		"emails_sent", report.EmailsSent,
		"failures", report.Failures(),
		logging.KeyDuration, time.Since(start).Milliseconds(),
	)
	return report
}

func (c *DeadlineChecker) process(ctx context.Context, o *model.Objective, usersByID map[string]*model.User, now time.Time) outcome {
	log := logging.LoggerFromContext(ctx).With(logging.KeyObjectiveID, o.ID)

	if !o.HasDeadline() {
		log.Debug("skipping objective", logging.KeyError, errors.ErrNoDeadline)
		return outcome{}
	}
	owner := usersByID[o.OwnerID]
	if owner == nil || owner.Email == "" {
		log.Warn("skipping objective", logging.KeyUserID, o.OwnerID, logging.KeyError, errors.ErrMissingRecipient)
		return outcome{}
	}

	pct := progress.CompletionFraction(o.Milestones)
	if pct >= 100 {
		log.Debug("skipping completed objective")
		return outcome{}
	}

	daysLeft := progress.DaysUntil(*o.Deadline, now, c.loc)
	category := Classify(daysLeft)
	rec := &model.ResultRecord{
		ObjectiveID:     o.ID,
		ObjectiveText:   o.Text,
		RecipientEmail:  owner.Email,
		DaysLeft:        daysLeft,
		ProgressPercent: progress.Round(pct),
	}
	if !category.Sends() {
		return outcome{record: rec}
	}
	rec.EmailCategory = &category

	log = log.With(logging.KeyCategory, category, logging.KeyDaysLeft, daysLeft)

	var notice *model.Notice
	if c.dedup {
		notice = model.NewNotice(o.ID, category, progress.Midnight(now, c.loc).Format(time.DateOnly), now)
		first, err := c.store.MarkNotified(ctx, notice)
		if err != nil {
			rec.Error = fmt.Sprintf("ledger: %v", err)
			log.Error("recording notice failed", logging.KeyError, err)
			return outcome{record: rec}
		}
		if !first {
			log.Info("reminder already sent today")
			return outcome{record: rec}
		}
	}

	id, err := c.dispatch(ctx, category, o.Text, progress.Round(pct), daysLeft, owner.Email)
	if err != nil {
		rec.Error = err.Error()
		log.Error("reminder not delivered", logging.KeyRecipient, logging.MaskEmail(owner.Email), logging.KeyError, err)
		if notice != nil {
			if uerr := c.store.UnmarkNotified(ctx, notice); uerr != nil {
				log.Warn("releasing notice failed", logging.KeyError, uerr)
			}
		}
		return outcome{record: rec}
	}

	rec.EmailSent = true
	rec.DeliveryID = id
	log.Info("reminder sent", logging.KeyRecipient, logging.MaskEmail(owner.Email), logging.KeyDeliveryID, id)
	return outcome{record: rec, sent: true}
}

func (c *DeadlineChecker) dispatch(ctx context.Context, category model.Category, text string, percent, daysLeft int, to string) (string, error) {
	days := daysLeft
	if days < 0 {
		days = -days
	}
	subject, html, err := mail.Render(category, mail.TemplateData{
		ObjectiveText: text,
		Percent:       percent,
		Days:          days,
		AppName:       c.appName,
	})
	if err != nil {
		return "", err
	}

	id, err := c.sender.Send(ctx, mail.Message{To: to, Subject: subject, HTML: html})
	if err != nil {
		return "", errors.NewDispatchError(to, err)
	}
	return id, nil
}
