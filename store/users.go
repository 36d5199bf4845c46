package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"mini-todos/models"
)

const mysqlErrDuplicateEntry = 1062

// UserStore handles persistence for users and their live token list.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (models.User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)",
		id, email, passwordHash)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE id = ?",
		id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// AddToken appends a live token to the user's session list. Single-row insert,
// so two concurrent logins never clobber each other's tokens.
func (s *UserStore) AddToken(ctx context.Context, userID, token, purpose string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_tokens (user_id, token, purpose) VALUES (?, ?, ?)",
		userID, token, purpose)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// RemoveToken revokes a token. Removing an already-absent token is a no-op.
func (s *UserStore) RemoveToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_tokens WHERE user_id = ? AND token = ?",
		userID, token)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// HasToken reports whether the exact token string is live for the user.
func (s *UserStore) HasToken(ctx context.Context, userID, token string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM user_tokens WHERE user_id = ? AND token = ?",
		userID, token).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select token: %w", err)
	}
	return true, nil
}
