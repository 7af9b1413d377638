package storage

import (
	"context"

	"github.com/imparable/imparable/internal/model"
)

// BadgerStore implements Store on an embedded Badger database.
type BadgerStore struct {
	db         *DB
	users      *UserRepo
	objectives *ObjectiveRepo
	notices    *NoticeRepo
}

// NewBadgerStore wires the repositories over db.
func NewBadgerStore(db *DB) *BadgerStore {
	return &BadgerStore{
		db:         db,
		users:      NewUserRepo(db),
		objectives: NewObjectiveRepo(db),
		notices:    NewNoticeRepo(db),
	}
}

// DB returns the underlying database.
func (s *BadgerStore) DB() *DB {
	return s.db
}

func (s *BadgerStore) ListObjectives(ctx context.Context) ([]*model.Objective, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.objectives.List()
}

func (s *BadgerStore) ListObjectivesByOwner(ctx context.Context, ownerID string) ([]*model.Objective, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.objectives.ListByOwner(ownerID)
}

func (s *BadgerStore) GetObjective(ctx context.Context, id string) (*model.Objective, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.objectives.Get(id)
}

func (s *BadgerStore) SaveObjective(ctx context.Context, o *model.Objective) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.objectives.Save(o)
}

func (s *BadgerStore) DeleteObjective(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.objectives.Delete(id)
}

func (s *BadgerStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.users.List()
}

func (s *BadgerStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.users.Get(id)
}

func (s *BadgerStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.users.GetByEmail(email)
}

func (s *BadgerStore) SaveUser(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.users.Save(u)
}

func (s *BadgerStore) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.users.Delete(id)
}

func (s *BadgerStore) MarkNotified(ctx context.Context, n *model.Notice) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.notices.Mark(n)
}

func (s *BadgerStore) UnmarkNotified(ctx context.Context, n *model.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.notices.Unmark(n)
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
