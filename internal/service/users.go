package service

import (
	"context"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/storage"
	"github.com/imparable/imparable/internal/validate"
)

// RegisterUserRequest describes a new user.
type RegisterUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
}

// Users manages user accounts.
type Users struct {
	store storage.Store
}

// NewUsers creates the user service.
func NewUsers(store storage.Store) *Users {
	return &Users{store: store}
}

// Register creates a user. Only admins and the local operator may create admins.
func (s *Users) Register(ctx context.Context, actor *model.User, req RegisterUserRequest) (*model.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := validate.Email(req.Email); err != nil {
		return nil, err
	}
	role := model.ParseRole(req.Role)
	if role == model.RoleAdmin && actor != nil && !actor.IsAdmin() {
		return nil, errors.ErrForbidden
	}

	u := model.NewUser(req.Email, role)
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	logging.InfoContext(ctx, "user registered", logging.KeyUserID, u.ID, logging.KeyRecipient, logging.MaskEmail(u.Email))
	return u, nil
}

// List returns every user. Admins and the local operator only.
func (s *Users) List(ctx context.Context, actor *model.User) ([]*model.User, error) {
	if actor != nil && !actor.IsAdmin() {
		return nil, errors.ErrForbidden
	}
	return s.store.ListUsers(ctx)
}

// Lookup finds a user by email.
func (s *Users) Lookup(ctx context.Context, email string) (*model.User, error) {
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	return s.store.GetUserByEmail(ctx, email)
}

// Delete removes a user. Users may delete themselves; admins anyone.
func (s *Users) Delete(ctx context.Context, actor *model.User, id string) error {
	if err := authorize(actor, id); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, id)
}
