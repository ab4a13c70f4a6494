// internal/repository/user_directory.go
package repository

import (
	"context"
	"fmt"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/util"
)

// UserDirectory resolves users outside of any transaction.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmailOrMobile(ctx context.Context, identifier string) (*domain.User, error)
}

type userDirectory struct {
	repo UserRepository
	q    DBExecutor
}

// NewUserDirectory binds a UserRepository to a connection.
func NewUserDirectory(repo UserRepository, q DBExecutor) UserDirectory {
	return &userDirectory{repo: repo, q: q}
}

func (d *userDirectory) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := d.repo.GetUserByID(ctx, d.q, id)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return user, nil
}

func (d *userDirectory) FindByEmailOrMobile(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := d.repo.GetUserByEmailOrMobile(ctx, d.q, identifier)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email or mobile: %w", err)
	}
	return user, nil
}
