package storage

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// CreateUser inserts a user. A taken username is a *core.DuplicateKeyError.
func (r *Repository) CreateUser(ctx context.Context, username, email string) (core.User, error) {
	username, err := core.ValidateUsername(username)
	if err != nil {
		return core.User{}, err
	}
	email, err = core.ValidateEmail(email)
	if err != nil {
		return core.User{}, err
	}

	var id int64
	err = r.withRetry(ctx, op{name: "create user", entity: "user", key: username}, func(ctx context.Context) error {
		var err error
		id, err = r.insertReturningID(ctx, r.db,
			`INSERT INTO users (username, email) VALUES (?, ?) RETURNING id`,
			username, email)
		return err
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User created", applog.FieldUserID, id, "username", username)
	return core.User{ID: id, Username: username, Email: email}, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, "get user by username", `SELECT id, username, email FROM users WHERE username = ?`, username)
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, "get user", `SELECT id, username, email FROM users WHERE id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, name, query string, arg any) (core.User, error) {
	var u core.User
	err := r.query(ctx, op{name: name, entity: "user"}, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, r.rebind(query), arg).Scan(&u.ID, &u.Username, &u.Email)
	})
	return u, err
}

// ListUsers returns every user ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	var users []core.User
	err := r.query(ctx, op{name: "list users", entity: "user"}, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, `SELECT id, username, email FROM users ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var u core.User
			if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	return users, err
}
