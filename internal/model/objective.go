package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imparable/imparable/internal/errors"
)

// Milestone is a checklist item inside an objective.
type Milestone struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Comment is a note left on an objective. Comments are append-only.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Objective is a user goal broken into milestones with an optional deadline.
// Completion is never stored; it is derived from Milestones on every read.
type Objective struct {
	Key        string      `json:"key"`
	ID         string      `json:"id"`
	OwnerID    string      `json:"owner_id"`
	Text       string      `json:"text"`
	Milestones []Milestone `json:"milestones"`
	Deadline   *time.Time  `json:"deadline,omitempty"`
	CreatedAt  *time.Time  `json:"created_at,omitempty"`
	Comments   []Comment   `json:"comments"`
}

// SetKey sets the database key for this objective.
func (o *Objective) SetKey(key string) {
	o.Key = key
}

// GetKey returns the database key for this objective.
func (o *Objective) GetKey() string {
	return o.Key
}

// GenerateObjectiveKey generates a database key for an objective id.
func GenerateObjectiveKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixObjective, id)
}

// NewObjective creates an objective stamped with the current time.
// Each milestone title becomes an open milestone.
func NewObjective(ownerID, text string, milestones []string, deadline *time.Time) *Objective {
	id := uuid.NewString()
	now := time.Now()
	o := &Objective{
		Key:        GenerateObjectiveKey(id),
		ID:         id,
		OwnerID:    ownerID,
		Text:       strings.TrimSpace(text),
		Milestones: make([]Milestone, 0, len(milestones)),
		Deadline:   deadline,
		CreatedAt:  &now,
		Comments:   []Comment{},
	}
	for _, title := range milestones {
		o.AddMilestone(title)
	}
	return o
}

// HasDeadline reports whether the objective has a deadline set.
func (o *Objective) HasDeadline() bool {
	return o.Deadline != nil && !o.Deadline.IsZero()
}

// CompletedCount returns how many milestones are done.
func (o *Objective) CompletedCount() int {
	n := 0
	for _, m := range o.Milestones {
		if m.Completed {
			n++
		}
	}
	return n
}

// AddMilestone appends an open milestone. Blank titles are ignored.
func (o *Objective) AddMilestone(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	o.Milestones = append(o.Milestones, Milestone{Title: title})
}

// ToggleMilestone flips the completed flag of the milestone at index.
func (o *Objective) ToggleMilestone(index int) error {
	if index < 0 || index >= len(o.Milestones) {
		return fmt.Errorf("toggle %d of %d: %w", index, len(o.Milestones), errors.ErrInvalidIndex)
	}
	o.Milestones[index].Completed = !o.Milestones[index].Completed
	return nil
}

// RemoveMilestone deletes the milestone at index.
func (o *Objective) RemoveMilestone(index int) error {
	if index < 0 || index >= len(o.Milestones) {
		return fmt.Errorf("remove %d of %d: %w", index, len(o.Milestones), errors.ErrInvalidIndex)
	}
	o.Milestones = append(o.Milestones[:index], o.Milestones[index+1:]...)
	return nil
}

// AddComment appends a comment and returns it.
func (o *Objective) AddComment(author, text string, at time.Time) Comment {
	c := Comment{
		ID:        uuid.NewString(),
		Author:    NormalizeEmail(author),
		Text:      strings.TrimSpace(text),
		CreatedAt: at,
	}
	o.Comments = append(o.Comments, c)
	return c
}

// Matches reports whether c is the comment target refers to. A target with
// an id matches by id. Comments saved before ids existed are matched by
// author, text and creation time.
func (c Comment) Matches(target Comment) bool {
	if target.ID != "" {
		return c.ID == target.ID
	}
	if target.Text == "" || target.CreatedAt.IsZero() {
		return false
	}
	return strings.EqualFold(c.Author, strings.TrimSpace(target.Author)) &&
		c.Text == target.Text &&
		c.CreatedAt.Equal(target.CreatedAt)
}

// RemoveComment removes the first comment matching target.
func (o *Objective) RemoveComment(target Comment) error {
	for i, c := range o.Comments {
		if c.Matches(target) {
			o.Comments = append(o.Comments[:i], o.Comments[i+1:]...)
			return nil
		}
	}
	if target.ID != "" {
		return fmt.Errorf("comment %s: %w", target.ID, errors.ErrCommentNotFound)
	}
	return errors.ErrCommentNotFound
}

// Normalize fills nil collections so stored and served objectives never
// carry null arrays.
func (o *Objective) Normalize() {
	if o.Milestones == nil {
		o.Milestones = []Milestone{}
	}
	if o.Comments == nil {
		o.Comments = []Comment{}
	}
}
