package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// UserUseCase handles registration and lookup of users
type UserUseCase struct {
	repo UserRepo
	log  *log.Helper

	now func() time.Time
}

// NewUserUseCase creates a new UserUseCase instance
func NewUserUseCase(repo UserRepo, logger log.Logger) *UserUseCase {
	return &UserUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
		now:  time.Now,
	}
}

// NormalizeUserName trims and lower-cases a user name.
func NormalizeUserName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register creates a user. Names are unique regardless of case.
func (uc *UserUseCase) Register(ctx context.Context, name string) (*User, error) {
	clean := NormalizeUserName(name)
	if clean == "" {
		uc.log.Warn("attempted to add user with empty name")
		return nil, ErrEmptyName
	}

	if _, err := uc.repo.GetUserByName(ctx, clean); err == nil {
		uc.log.Warnf("duplicate user: '%s'", clean)
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, storageErr("get user by name", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate user ID: %w", ErrStorage, err)
	}
	user := &User{ID: id.String(), Name: clean, CreatedAt: uc.now().UTC()}
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if !IsClientError(err) {
			uc.log.Errorf("failed to add user '%s': %v", clean, err)
		}
		return nil, storageErr("create user", err)
	}
	uc.log.Infof("user '%s' added (ID: %s)", user.Name, user.ID)
	return user, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := uc.repo.GetUser(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return user, nil
}

// GetUserByName retrieves a user by name, ignoring case.
func (uc *UserUseCase) GetUserByName(ctx context.Context, name string) (*User, error) {
	clean := NormalizeUserName(name)
	if clean == "" {
		return nil, ErrEmptyName
	}
	user, err := uc.repo.GetUserByName(ctx, clean)
	if err != nil {
		return nil, storageErr("get user by name", err)
	}
	return user, nil
}

// ListUsers returns every user with the size of their list.
func (uc *UserUseCase) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := uc.repo.ListUsers(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}
