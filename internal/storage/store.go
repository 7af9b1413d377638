// Package storage persists users, objectives and the sent-notice ledger.
// Two backends implement Store: an embedded Badger database and a SQL
// database (SQLite or PostgreSQL) accessed through sqlx.
package storage

import (
	"context"
	"fmt"

	"github.com/imparable/imparable/internal/model"
)

// Store is the document store used by the scheduler and the API.
// Missing records are reported with errors.ErrObjectiveNotFound or
// errors.ErrUserNotFound.
type Store interface {
	ListObjectives(ctx context.Context) ([]*model.Objective, error)
	ListObjectivesByOwner(ctx context.Context, ownerID string) ([]*model.Objective, error)
	GetObjective(ctx context.Context, id string) (*model.Objective, error)
	SaveObjective(ctx context.Context, o *model.Objective) error
	DeleteObjective(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error

	// MarkNotified records a sent notice and reports whether it was the first
	// one for its (objective, category, date) key.
	MarkNotified(ctx context.Context, n *model.Notice) (bool, error)
	// UnmarkNotified releases a notice whose delivery failed.
	UnmarkNotified(ctx context.Context, n *model.Notice) error

	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Path is the Badger directory. Empty means in-memory.
	Path string
	// DSN is the SQL data source, e.g. "file:imparable.db" or a postgres URL.
	DSN string
}

// Open opens the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendBadger:
		db, err := OpenBadger(Options{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		return NewBadgerStore(db), nil
	case BackendSQLite:
		return OpenSQL(ctx, DriverSQLite, cfg.DSN)
	case BackendPostgres:
		return OpenSQL(ctx, DriverPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// UsersByID loads every user into a map keyed by id.
func UsersByID(ctx context.Context, s Store) (map[string]*model.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m, nil
}
