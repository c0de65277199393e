package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// ErrDuplicateEmail is returned when an account already uses the e-mail.
var ErrDuplicateEmail = errors.New("email already registered")

// CreateUser inserts a new account. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return model.User{}, fmt.Errorf("user email must not be empty")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	var exists int
	err := s.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM users WHERE email = ?", user.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("checking email: %w", err)
	}
	if exists > 0 {
		return model.User{}, ErrDuplicateEmail
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO users (
			id, email, display_name, password_hash, disabled,
			created_at, updated_at
		) VALUES (
			:id, :email, :display_name, :password_hash, :disabled,
			:created_at, :updated_at
		)`, user)
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// GetUserByEmail looks an account up by e-mail, ignoring case.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE email = ?", strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a single account.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash of an account.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating password of %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetUserDisabled enables or disables an account.
func (s *SQLiteStore) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET disabled = ?, updated_at = ? WHERE id = ?",
		disabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
