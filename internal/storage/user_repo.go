package storage

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	ierrors "github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// UserRepo provides operations for User entities.
// Each user also owns an email index entry pointing at its id.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new user repository.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

type emailIndex struct {
	Key    string `json:"key"`
	UserID string `json:"user_id"`
}

func (e *emailIndex) SetKey(key string) { e.Key = key }
func (e *emailIndex) GetKey() string    { return e.Key }

// Save creates or updates a user and its email index in one transaction.
func (r *UserRepo) Save(u *model.User) error {
	u.Email = model.NormalizeEmail(u.Email)
	u.Key = model.GenerateUserKey(u.ID)

	return r.db.db.Update(func(txn *badger.Txn) error {
		idx := &emailIndex{}
		err := getTxn(txn, model.GenerateUserEmailKey(u.Email), idx)
		switch {
		case err == nil && idx.UserID != u.ID:
			return fmt.Errorf("%s: %w", u.Email, ierrors.ErrEmailTaken)
		case err != nil && !errors.Is(err, ErrKeyNotFound):
			return err
		}

		prev := &model.User{}
		err = getTxn(txn, u.Key, prev)
		if err == nil && prev.Email != u.Email {
			if err := txn.Delete([]byte(model.GenerateUserEmailKey(prev.Email))); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		if err := setTxn(txn, u); err != nil {
			return err
		}
		return setTxn(txn, &emailIndex{Key: model.GenerateUserEmailKey(u.Email), UserID: u.ID})
	})
}

// Get retrieves a user by id.
func (r *UserRepo) Get(id string) (*model.User, error) {
	u := &model.User{}
	if err := r.db.Get(model.GenerateUserKey(id), u); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", id, ierrors.ErrUserNotFound)
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail resolves a user through the email index.
func (r *UserRepo) GetByEmail(email string) (*model.User, error) {
	idx := &emailIndex{}
	if err := r.db.Get(model.GenerateUserEmailKey(email), idx); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", email, ierrors.ErrUserNotFound)
		}
		return nil, err
	}
	return r.Get(idx.UserID)
}

// Delete removes a user and its email index.
func (r *UserRepo) Delete(id string) error {
	u, err := r.Get(id)
	if err != nil {
		return err
	}
	return r.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(model.GenerateUserEmailKey(u.Email))); err != nil {
			return err
		}
		return txn.Delete([]byte(u.Key))
	})
}

// List retrieves all users.
func (r *UserRepo) List() ([]*model.User, error) {
	return GetAllByPrefix(r.db, model.PrefixUser+":", func() *model.User {
		return &model.User{}
	})
}

