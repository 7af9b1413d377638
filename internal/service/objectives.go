// Package service holds the objective and user operations shared by the HTTP
// API and the CLI. A nil actor stands for the local operator, who may act on
// any record; requests from the API always carry an actor.
package service

import (
	"context"
	"time"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/parser"
	"github.com/imparable/imparable/internal/progress"
	"github.com/imparable/imparable/internal/scheduler"
	"github.com/imparable/imparable/internal/storage"
	"github.com/imparable/imparable/internal/validate"
)

// CreateObjectiveRequest describes a new objective.
type CreateObjectiveRequest struct {
	// OwnerEmail assigns the objective to another user. Only admins and the
	// local operator may set it; empty means the actor.
	OwnerEmail string   `json:"ownerEmail" validate:"omitempty,email"`
	Text       string   `json:"text" validate:"required,max=280"`
	Milestones []string `json:"milestones" validate:"max=50"`
	// Deadline is a date ("2026-06-30"), an offset ("+3d") or natural language.
	Deadline string `json:"deadline"`
}

// UpdateObjectiveRequest changes an objective. Nil fields are left alone.
// An empty Deadline clears it.
type UpdateObjectiveRequest struct {
	Text       *string  `json:"text" validate:"omitempty,max=280"`
	Deadline   *string  `json:"deadline"`
	Milestones []string `json:"milestones" validate:"max=50"`
}

// EditResult is an edited objective and the completion notice the edit may have sent.
type EditResult struct {
	Objective  *model.Objective
	Owner      *model.User
	NoticeSent bool
	NoticeErr  error
}

// Objectives manages objectives, milestones and comments.
type Objectives struct {
	store    storage.Store
	notifier *scheduler.CompletionNotifier
	loc      *time.Location
	clock    func() time.Time
}

// NewObjectives creates the objective service. notifier may be nil to skip
// completion notices.
func NewObjectives(store storage.Store, notifier *scheduler.CompletionNotifier, loc *time.Location, clock func() time.Time) *Objectives {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	return &Objectives{store: store, notifier: notifier, loc: loc, clock: clock}
}

func authorize(actor *model.User, ownerID string) error {
	if actor == nil || actor.CanEdit(ownerID) {
		return nil
	}
	return errors.ErrForbidden
}

func (s *Objectives) parseDeadline(input string) (*time.Time, error) {
	if input == "" {
		return nil, nil
	}
	d, err := parser.ParseDeadline(input, s.clock(), s.loc)
	if err != nil {
		return nil, parser.AsUserError(err)
	}
	return &d, nil
}

func cleanMilestones(titles []string) ([]string, error) {
	titles = validate.SanitizeLines(titles)
	if err := validate.Milestones(titles); err != nil {
		return nil, err
	}
	return titles, nil
}

// Create validates req and stores a new objective.
func (s *Objectives) Create(ctx context.Context, actor *model.User, req CreateObjectiveRequest) (*model.Objective, *model.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, nil, err
	}
	text := validate.SanitizeLine(req.Text)
	if err := validate.ObjectiveText(text); err != nil {
		return nil, nil, err
	}
	milestones, err := cleanMilestones(req.Milestones)
	if err != nil {
		return nil, nil, err
	}
	deadline, err := s.parseDeadline(req.Deadline)
	if err != nil {
		return nil, nil, err
	}

	owner := actor
	if req.OwnerEmail != "" {
		owner, err = s.store.GetUserByEmail(ctx, req.OwnerEmail)
		if err != nil {
			return nil, nil, err
		}
		if err := authorize(actor, owner.ID); err != nil {
			return nil, nil, err
		}
	}
	if owner == nil {
		return nil, nil, errors.NewUserError("owner is required", "Pass the owner's email")
	}

	o := model.NewObjective(owner.ID, text, milestones, deadline)
	created := s.clock()
	o.CreatedAt = &created
	if err := s.store.SaveObjective(ctx, o); err != nil {
		return nil, nil, err
	}
	logging.InfoContext(ctx, "objective created", logging.KeyObjectiveID, o.ID, logging.KeyUserID, owner.ID)
	return o, owner, nil
}

// Get returns an objective the actor may see, with its owner.
func (s *Objectives) Get(ctx context.Context, actor *model.User, id string) (*model.Objective, *model.User, error) {
	o, err := s.store.GetObjective(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(actor, o.OwnerID); err != nil {
		return nil, nil, err
	}
	owner, err := s.store.GetUser(ctx, o.OwnerID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, nil, err
	}
	return o, owner, nil
}

// List returns objectives with their owners keyed by id. ownerEmail narrows
// the list to one user; all lists everyone's. Regular users only see their own.
func (s *Objectives) List(ctx context.Context, actor *model.User, ownerEmail string, all bool) ([]*model.Objective, map[string]*model.User, error) {
	privileged := actor == nil || actor.IsAdmin()

	switch {
	case ownerEmail != "":
		owner, err := s.store.GetUserByEmail(ctx, ownerEmail)
		if err != nil {
			return nil, nil, err
		}
		if err := authorize(actor, owner.ID); err != nil {
			return nil, nil, err
		}
		list, err := s.store.ListObjectivesByOwner(ctx, owner.ID)
		return list, map[string]*model.User{owner.ID: owner}, err

	case all || actor == nil:
		if !privileged {
			return nil, nil, errors.ErrForbidden
		}
		list, err := s.store.ListObjectives(ctx)
		if err != nil {
			return nil, nil, err
		}
		users, err := storage.UsersByID(ctx, s.store)
		return list, users, err

	default:
		list, err := s.store.ListObjectivesByOwner(ctx, actor.ID)
		return list, map[string]*model.User{actor.ID: actor}, err
	}
}

// Update applies req to an objective. Milestones are replaced by title;
// a title that already existed keeps its completed flag.
func (s *Objectives) Update(ctx context.Context, actor *model.User, id string, req UpdateObjectiveRequest) (*EditResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	o, owner, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasComplete := progress.IsComplete(o.Milestones)

	if req.Text != nil {
		text := validate.SanitizeLine(*req.Text)
		if err := validate.ObjectiveText(text); err != nil {
			return nil, err
		}
		o.Text = text
	}
	if req.Deadline != nil {
		deadline, err := s.parseDeadline(*req.Deadline)
		if err != nil {
			return nil, err
		}
		o.Deadline = deadline
	}
	if req.Milestones != nil {
		titles, err := cleanMilestones(req.Milestones)
		if err != nil {
			return nil, err
		}
		done := make(map[string]bool, len(o.Milestones))
		for _, m := range o.Milestones {
			done[m.Title] = done[m.Title] || m.Completed
		}
		o.Milestones = make([]model.Milestone, 0, len(titles))
		for _, t := range titles {
			o.Milestones = append(o.Milestones, model.Milestone{Title: t, Completed: done[t]})
		}
	}

	if err := s.store.SaveObjective(ctx, o); err != nil {
		return nil, err
	}
	return s.afterEdit(ctx, o, owner, wasComplete), nil
}

// Delete removes an objective.
func (s *Objectives) Delete(ctx context.Context, actor *model.User, id string) error {
	if _, _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.DeleteObjective(ctx, id); err != nil {
		return err
	}
	logging.InfoContext(ctx, "objective deleted", logging.KeyObjectiveID, id)
	return nil
}

// ToggleMilestone flips one milestone and sends the completion notice when
// that finishes the objective.
func (s *Objectives) ToggleMilestone(ctx context.Context, actor *model.User, id string, index int) (*EditResult, error) {
	o, owner, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasComplete := progress.IsComplete(o.Milestones)

	if err := o.ToggleMilestone(index); err != nil {
		return nil, err
	}
	if err := s.store.SaveObjective(ctx, o); err != nil {
		return nil, err
	}
	return s.afterEdit(ctx, o, owner, wasComplete), nil
}

// afterEdit sends the completion notice if the edit finished the objective.
// A failed notice does not undo the edit.
func (s *Objectives) afterEdit(ctx context.Context, o *model.Objective, owner *model.User, wasComplete bool) *EditResult {
	res := &EditResult{Objective: o, Owner: owner}
	if s.notifier == nil {
		return res
	}
	res.NoticeSent, res.NoticeErr = s.notifier.NotifyIfCompleted(ctx, wasComplete, o, owner)
	if res.NoticeErr != nil {
		logging.WarnContext(ctx, "completion notice not sent", logging.KeyObjectiveID, o.ID, logging.KeyError, res.NoticeErr)
	}
	return res
}

// AddComment appends a comment written by the actor.
func (s *Objectives) AddComment(ctx context.Context, actor *model.User, id, author, text string) (model.Comment, error) {
	text = validate.SanitizeText(text)
	if err := validate.Comment(text); err != nil {
		return model.Comment{}, err
	}
	o, _, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.Comment{}, err
	}
	if actor != nil {
		author = actor.Email
	}
	if err := validate.Email(author); err != nil {
		return model.Comment{}, err
	}

	c := o.AddComment(author, text, s.clock())
	if err := s.store.SaveObjective(ctx, o); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// DeleteComment removes the comment matching target from an objective.
// See model.Comment.Matches for how target is compared.
func (s *Objectives) DeleteComment(ctx context.Context, actor *model.User, id string, target model.Comment) error {
	o, _, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := o.RemoveComment(target); err != nil {
		return err
	}
	return s.store.SaveObjective(ctx, o)
}

// Progress is an objective's completion and time usage.
type Progress struct {
	ObjectiveID     string                 `json:"objectiveId"`
	CompletionPct   float64                `json:"completionPercent"`
	ProgressPercent int                    `json:"progressPercent"`
	CompletedCount  int                    `json:"completedCount"`
	TotalCount      int                    `json:"totalCount"`
	IsComplete      bool                   `json:"isComplete"`
	Time            *progress.TimeProgress `json:"timeProgress"`
}

// Progress computes completion and elapsed time for an objective.
func (s *Objectives) Progress(ctx context.Context, actor *model.User, id string) (*Progress, error) {
	o, _, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	pct := progress.CompletionFraction(o.Milestones)
	return &Progress{
		ObjectiveID:     o.ID,
		CompletionPct:   pct,
		ProgressPercent: progress.Round(pct),
		CompletedCount:  o.CompletedCount(),
		TotalCount:      len(o.Milestones),
		IsComplete:      progress.IsComplete(o.Milestones),
		Time:            progress.TimeElapsed(o.CreatedAt, o.Deadline, s.clock(), s.loc),
	}, nil
}

// Location is the timezone deadlines are read in.
func (s *Objectives) Location() *time.Location { return s.loc }

// Now returns the service clock.
func (s *Objectives) Now() time.Time { return s.clock() }
