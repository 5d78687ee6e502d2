// Package users handles registration and profile maintenance.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/auth"
	"github.com/pliu/chatd/internal/models"
	"github.com/pliu/chatd/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Update is a partial profile change. Nil fields are left untouched.
type Update struct {
	Username *string
	Email    *string
	Password *string
	IsOnline *bool
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, apperr.InvalidArgument("Username and email are required")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.InvalidArgument("Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			return nil, apperr.InvalidArgument("Password is required")
		}
		return nil, err
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.InvalidArgument("Username or email already taken")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id int) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return user, err
}

// Update applies the non-nil fields of u. A new password is re-hashed.
func (s *Service) Update(ctx context.Context, id int, u Update) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Username != nil {
		if name := strings.TrimSpace(*u.Username); name != "" {
			user.Username = name
		}
	}
	if u.Email != nil {
		if email := strings.TrimSpace(*u.Email); email != "" {
			user.Email = email
		}
	}
	if u.Password != nil && *u.Password != "" {
		hash, err := auth.HashPassword(*u.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if u.IsOnline != nil {
		user.IsOnline = *u.IsOnline
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.InvalidArgument("Username or email already taken")
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	err := s.store.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return err
}
