// internal/auth/service.go
package auth

import (
	"context"
	"database/sql"
	"fmt"

	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
	"agribot/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Service manages user accounts in the users table. Verify-or-reject only;
// it issues no tokens and holds no session state.
type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "auth",
		}),
	}
}

// Register creates a new account. Duplicate usernames are rejected.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.NewInvalidRequestError("username and password are required")
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return errors.NewDuplicateUserError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES ($1, $2)", username, string(hash)); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user registered", map[string]interface{}{
		"username": username,
	})
	return nil
}

// Login verifies the credentials. Unknown usernames and wrong passwords
// both come back as a plain false, not an error.
func (s *Service) Login(ctx context.Context, username, password string) (bool, error) {
	user := models.User{Username: username}
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE username = $1", username).Scan(&user.PasswordHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}

	s.logger.Info("user logged in", map[string]interface{}{
		"username": username,
	})
	return true, nil
}
