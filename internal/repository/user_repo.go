// internal/repository/user_repo.go
package repository

import (
	"context"
	"time"

	"paynow-wallet/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser adds a new user. A taken email or mobile yields util.ErrDuplicateEntry.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// GetUserByID retrieves a user by their ID.
	GetUserByID(ctx context.Context, q DBExecutor, id string) (*domain.User, error)
	// GetUserByEmail retrieves a user by their email address.
	GetUserByEmail(ctx context.Context, q DBExecutor, email string) (*domain.User, error)
	// GetUserByEmailOrMobile retrieves a user whose email or mobile equals identifier.
	GetUserByEmailOrMobile(ctx context.Context, q DBExecutor, identifier string) (*domain.User, error)
	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, q DBExecutor, id, passwordHash string) error
	// UpdateLastLogin stamps a successful authentication.
	UpdateLastLogin(ctx context.Context, q DBExecutor, id string, at time.Time) error
}
