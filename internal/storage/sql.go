package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	ierrors "github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// SQL driver names registered by the imported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQLStore implements Store on SQLite or PostgreSQL.
// Milestones and comments are stored as JSON text columns.
type SQLStore struct {
	db *sqlx.DB
}

type migration struct {
	version  int
	sqlite   string
	postgres string
}

var migrations = []migration{
	{
		version: 1,
		sqlite: `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				email      TEXT NOT NULL UNIQUE,
				role       TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);
			CREATE TABLE IF NOT EXISTS objectives (
				id         TEXT PRIMARY KEY,
				owner_id   TEXT NOT NULL,
				text       TEXT NOT NULL,
				milestones TEXT NOT NULL,
				comments   TEXT NOT NULL,
				deadline   DATETIME,
				created_at DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_objectives_owner ON objectives(owner_id);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				email      TEXT NOT NULL UNIQUE,
				role       TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			);
			CREATE TABLE IF NOT EXISTS objectives (
				id         TEXT PRIMARY KEY,
				owner_id   TEXT NOT NULL,
				text       TEXT NOT NULL,
				milestones TEXT NOT NULL,
				comments   TEXT NOT NULL,
				deadline   TIMESTAMPTZ,
				created_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_objectives_owner ON objectives(owner_id);`,
	},
	{
		version: 2,
		sqlite: `
			CREATE TABLE IF NOT EXISTS notices (
				objective_id TEXT NOT NULL,
				category     TEXT NOT NULL,
				day          TEXT NOT NULL,
				sent_at      DATETIME NOT NULL,
				PRIMARY KEY (objective_id, category, day)
			);`,
		postgres: `
			CREATE TABLE IF NOT EXISTS notices (
				objective_id TEXT NOT NULL,
				category     TEXT NOT NULL,
				day          TEXT NOT NULL,
				sent_at      TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (objective_id, category, day)
			);`,
	},
}

// OpenSQL opens a SQL store with the given driver and runs pending migrations.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty dsn", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLStore) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		ddl := m.sqlite
		if s.db.DriverName() == DriverPostgres {
			ddl = m.postgres
		}
		for _, stmt := range strings.Split(ddl, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying migration v%d: %w", m.version, err)
			}
		}
		if _, err := s.db.ExecContext(ctx,
			s.db.Rebind("INSERT INTO schema_version (version) VALUES (?)"), m.version); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type userRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		Key:       model.GenerateUserKey(r.ID),
		ID:        r.ID,
		Email:     r.Email,
		Role:      model.Role(r.Role),
		CreatedAt: r.CreatedAt,
	}
}

type objectiveRow struct {
	ID         string     `db:"id"`
	OwnerID    string     `db:"owner_id"`
	Text       string     `db:"text"`
	Milestones string     `db:"milestones"`
	Comments   string     `db:"comments"`
	Deadline   *time.Time `db:"deadline"`
	CreatedAt  *time.Time `db:"created_at"`
}

func (r objectiveRow) toModel() (*model.Objective, error) {
	o := &model.Objective{
		Key:       model.GenerateObjectiveKey(r.ID),
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Text:      r.Text,
		Deadline:  r.Deadline,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Milestones), &o.Milestones); err != nil {
		return nil, fmt.Errorf("unmarshaling milestones of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Comments), &o.Comments); err != nil {
		return nil, fmt.Errorf("unmarshaling comments of %s: %w", r.ID, err)
	}
	o.Normalize()
	return o, nil
}

const objectiveColumns = "id, owner_id, text, milestones, comments, deadline, created_at"

func (s *SQLStore) selectObjectives(ctx context.Context, query string, args ...any) ([]*model.Objective, error) {
	var rows []objectiveRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying objectives: %w", err)
	}
	objectives := make([]*model.Objective, 0, len(rows))
	for _, r := range rows {
		o, err := r.toModel()
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, o)
	}
	return objectives, nil
}

// ListObjectives returns every objective.
func (s *SQLStore) ListObjectives(ctx context.Context) ([]*model.Objective, error) {
	return s.selectObjectives(ctx, "SELECT "+objectiveColumns+" FROM objectives ORDER BY id")
}

// ListObjectivesByOwner returns the objectives owned by ownerID.
func (s *SQLStore) ListObjectivesByOwner(ctx context.Context, ownerID string) ([]*model.Objective, error) {
	return s.selectObjectives(ctx,
		"SELECT "+objectiveColumns+" FROM objectives WHERE owner_id = ? ORDER BY id", ownerID)
}

// GetObjective returns one objective.
func (s *SQLStore) GetObjective(ctx context.Context, id string) (*model.Objective, error) {
	var row objectiveRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind("SELECT "+objectiveColumns+" FROM objectives WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("objective %s: %w", id, ierrors.ErrObjectiveNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting objective %s: %w", id, err)
	}
	return row.toModel()
}

// SaveObjective inserts or replaces an objective.
func (s *SQLStore) SaveObjective(ctx context.Context, o *model.Objective) error {
	o.Normalize()
	o.Key = model.GenerateObjectiveKey(o.ID)

	milestones, err := json.Marshal(o.Milestones)
	if err != nil {
		return fmt.Errorf("marshaling milestones: %w", err)
	}
	comments, err := json.Marshal(o.Comments)
	if err != nil {
		return fmt.Errorf("marshaling comments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO objectives (`+objectiveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			text = excluded.text,
			milestones = excluded.milestones,
			comments = excluded.comments,
			deadline = excluded.deadline,
			created_at = excluded.created_at`),
		o.ID, o.OwnerID, o.Text, string(milestones), string(comments),
		utcPtr(o.Deadline), utcPtr(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving objective %s: %w", o.ID, err)
	}
	return nil
}

// DeleteObjective removes an objective.
func (s *SQLStore) DeleteObjective(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM objectives WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting objective %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("objective %s: %w", id, ierrors.ErrObjectiveNotFound)
	}
	return nil
}

// ListUsers returns every user.
func (s *SQLStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, email, role, created_at FROM users ORDER BY email"); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	users := make([]*model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel())
	}
	return users, nil
}

func (s *SQLStore) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind("SELECT id, email, role, created_at FROM users WHERE "+column+" = ?"), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", value, ierrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", value, err)
	}
	return row.toModel(), nil
}

// GetUser returns a user by id.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail returns a user by email, compared case-insensitively.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "email", model.NormalizeEmail(email))
}

// SaveUser inserts or updates a user. An email held by another user is rejected.
func (s *SQLStore) SaveUser(ctx context.Context, u *model.User) error {
	u.Email = model.NormalizeEmail(u.Email)
	u.Key = model.GenerateUserKey(u.ID)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var holder string
	err = tx.GetContext(ctx, &holder, tx.Rebind("SELECT id FROM users WHERE email = ?"), u.Email)
	switch {
	case err == nil && holder != u.ID:
		return fmt.Errorf("%s: %w", u.Email, ierrors.ErrEmailTaken)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking email %s: %w", u.Email, err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO users (id, email, role, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, role = excluded.role`),
		u.ID, u.Email, string(u.Role), u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.ID, err)
	}
	return tx.Commit()
}

// DeleteUser removes a user.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, ierrors.ErrUserNotFound)
	}
	return nil
}

// MarkNotified inserts a ledger row unless the key is already present.
func (s *SQLStore) MarkNotified(ctx context.Context, n *model.Notice) (bool, error) {
	n.Key = model.GenerateNoticeKey(n.ObjectiveID, n.Category, n.Date)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO notices (objective_id, category, day, sent_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (objective_id, category, day) DO NOTHING`),
		n.ObjectiveID, string(n.Category), n.Date, n.SentAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("recording notice %s: %w", n.Key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// UnmarkNotified deletes a ledger row.
func (s *SQLStore) UnmarkNotified(ctx context.Context, n *model.Notice) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"DELETE FROM notices WHERE objective_id = ? AND category = ? AND day = ?"),
		n.ObjectiveID, string(n.Category), n.Date,
	)
	if err != nil {
		return fmt.Errorf("releasing notice %s: %w", n.Key, err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
