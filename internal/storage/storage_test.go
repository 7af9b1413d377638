package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// Helper to create an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := OpenBadger(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupSQLite(t *testing.T) *SQLStore {
	dsn := "file:" + filepath.Join(t.TempDir(), "imparable.db")
	s, err := OpenSQL(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against every Store implementation that needs no server.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("badger", func(t *testing.T) {
		fn(t, NewBadgerStore(setupTestDB(t)))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupSQLite(t))
	})
}

// =============================================================================
// DB Tests
// =============================================================================

func TestOpenBadger(t *testing.T) {
	t.Run("in_memory", func(t *testing.T) {
		db, err := OpenBadger(Options{InMemory: true})
		require.NoError(t, err)
		assert.Equal(t, "", db.Path())
		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, db.Close())
	})

	t.Run("on_disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		db, err := OpenBadger(Options{Path: dir})
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, dir, db.Path())
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Contains(t, path, "imparable")
	assert.Equal(t, "db", filepath.Base(path))
}

func TestOpenFactory(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: BackendBadger})
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	s.Close()

	s, err = Open(ctx, Config{Backend: BackendSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	s.Close()

	_, err = Open(ctx, Config{Backend: BackendSQLite})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Backend: "mongo"})
	assert.Error(t, err)
}

func TestSetIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	n := model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", time.Now())

	first, err := db.SetIfAbsent(n)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := db.SetIfAbsent(n)
	require.NoError(t, err)
	assert.False(t, again)

	exists, err := db.Exists(n.GetKey())
	require.NoError(t, err)
	assert.True(t, exists)
}

// =============================================================================
// User Tests
// =============================================================================

func TestUsers(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ana := model.NewUser("ana@example.com", model.RoleUser)
		admin := model.NewUser("admin@example.com", model.RoleAdmin)
		require.NoError(t, s.SaveUser(ctx, ana))
		require.NoError(t, s.SaveUser(ctx, admin))

		got, err := s.GetUser(ctx, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", got.Email)
		assert.Equal(t, model.RoleUser, got.Role)

		byEmail, err := s.GetUserByEmail(ctx, "ANA@example.com")
		require.NoError(t, err)
		assert.Equal(t, ana.ID, byEmail.ID)

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		byID, err := UsersByID(ctx, s)
		require.NoError(t, err)
		assert.True(t, byID[admin.ID].IsAdmin())

		_, err = s.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ierrors.ErrUserNotFound)
		_, err = s.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ierrors.ErrUserNotFound)
	})
}

func TestUserEmailUnique(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveUser(ctx, model.NewUser("dup@example.com", "")))

		err := s.SaveUser(ctx, model.NewUser("Dup@Example.com", ""))
		assert.ErrorIs(t, err, ierrors.ErrEmailTaken)
	})
}

func TestUserEmailChange(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := model.NewUser("old@example.com", "")
		require.NoError(t, s.SaveUser(ctx, u))

		u.Email = "new@example.com"
		require.NoError(t, s.SaveUser(ctx, u))

		_, err := s.GetUserByEmail(ctx, "old@example.com")
		assert.ErrorIs(t, err, ierrors.ErrUserNotFound)

		got, err := s.GetUserByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		require.NoError(t, s.SaveUser(ctx, model.NewUser("old@example.com", "")))
	})
}

func TestDeleteUser(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := model.NewUser("gone@example.com", "")
		require.NoError(t, s.SaveUser(ctx, u))
		require.NoError(t, s.DeleteUser(ctx, u.ID))

		_, err := s.GetUserByEmail(ctx, u.Email)
		assert.ErrorIs(t, err, ierrors.ErrUserNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ierrors.ErrUserNotFound)
	})
}

// =============================================================================
// Objective Tests
// =============================================================================

func TestObjectives(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

		o := model.NewObjective("u1", "Run 10k", []string{"Week 1", "Week 2"}, &deadline)
		require.NoError(t, o.ToggleMilestone(0))
		o.AddComment("coach@example.com", "nice start", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
		require.NoError(t, s.SaveObjective(ctx, o))
		require.NoError(t, s.SaveObjective(ctx, model.NewObjective("u2", "Read", nil, nil)))

		got, err := s.GetObjective(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Run 10k", got.Text)
		require.Len(t, got.Milestones, 2)
		assert.True(t, got.Milestones[0].Completed)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, "nice start", got.Comments[0].Text)
		require.NotNil(t, got.Deadline)
		assert.True(t, deadline.Equal(*got.Deadline))

		all, err := s.ListObjectives(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		owned, err := s.ListObjectivesByOwner(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Nil(t, owned[0].Deadline)
		assert.NotNil(t, owned[0].Milestones)
		assert.NotNil(t, owned[0].Comments)

		got.Text = "Run 21k"
		require.NoError(t, s.SaveObjective(ctx, got))
		again, err := s.GetObjective(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Run 21k", again.Text)

		require.NoError(t, s.DeleteObjective(ctx, o.ID))
		_, err = s.GetObjective(ctx, o.ID)
		assert.ErrorIs(t, err, ierrors.ErrObjectiveNotFound)
		assert.ErrorIs(t, s.DeleteObjective(ctx, o.ID), ierrors.ErrObjectiveNotFound)
	})
}

func TestCanceledContext(t *testing.T) {
	s := NewBadgerStore(setupTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListObjectives(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Notice Ledger Tests
// =============================================================================

func TestMarkNotified(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		first, err := s.MarkNotified(ctx, model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", now))
		require.NoError(t, err)
		assert.True(t, first)

		dup, err := s.MarkNotified(ctx, model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", now))
		require.NoError(t, err)
		assert.False(t, dup)

		nextDay, err := s.MarkNotified(ctx, model.NewNotice("o1", model.CategoryDueToday, "2026-03-11", now))
		require.NoError(t, err)
		assert.True(t, nextDay)

		require.NoError(t, s.UnmarkNotified(ctx, model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", now)))
		again, err := s.MarkNotified(ctx, model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", now))
		require.NoError(t, err)
		assert.True(t, again)
	})
}

func TestNoticeRepoListForObjective(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNoticeRepo(db)
	now := time.Now()

	_, err := repo.Mark(model.NewNotice("o1", model.CategoryDueTomorrow, "2026-03-09", now))
	require.NoError(t, err)
	_, err = repo.Mark(model.NewNotice("o1", model.CategoryDueToday, "2026-03-10", now))
	require.NoError(t, err)
	_, err = repo.Mark(model.NewNotice("o10", model.CategoryDueToday, "2026-03-10", now))
	require.NoError(t, err)

	notices, err := repo.ListForObjective("o1")
	require.NoError(t, err)
	assert.Len(t, notices, 2)
}
