package services

import (
	"context"
	"strings"

	"expensetracker/internal/core"
)

// UserService handles signup and lookup. There are no passwords; login is by
// username and the HTTP layer issues the session token.
type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) Signup(ctx context.Context, username, email string) (core.User, error) {
	return s.store.CreateUser(ctx, username, email)
}

// Login returns the user with the given username, or core.ErrNotFound.
func (s *UserService) Login(ctx context.Context, username string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, core.ErrEmptyUsername
	}
	return s.store.GetUserByUsername(ctx, username)
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	if id <= 0 {
		return core.User{}, core.ErrNotFound
	}
	return s.store.GetUserByID(ctx, id)
}
