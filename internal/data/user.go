package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinecrowd/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

type userRepo struct {
	data *Data
	log  *log.Helper
}

// NewUserRepo creates a new user repository
func NewUserRepo(data *Data, logger log.Logger) biz.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *userRepo) CreateUser(ctx context.Context, user *biz.User) error {
	m := &User{ID: user.ID, Name: user.Name, CreatedAt: user.CreatedAt}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return biz.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = m.CreatedAt
	return nil
}

func (r *userRepo) GetUser(ctx context.Context, id string) (*biz.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepo) GetUserByName(ctx context.Context, name string) (*biz.User, error) {
	return r.findOne(ctx, "LOWER(name) = LOWER(?)", name)
}

func (r *userRepo) findOne(ctx context.Context, cond string, arg string) (*biz.User, error) {
	var m User
	if err := r.data.DB(ctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &biz.User{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt}, nil
}

// ListUsers returns every user with the size of their list, ordered by name.
func (r *userRepo) ListUsers(ctx context.Context) ([]*biz.User, error) {
	var rows []struct {
		ID         string
		Name       string
		CreatedAt  time.Time
		MovieCount int
	}
	err := r.data.DB(ctx).
		Table("users").
		Select("users.id, users.name, users.created_at, COUNT(user_movies.id) AS movie_count").
		Joins("LEFT JOIN user_movies ON user_movies.user_id = users.id").
		Group("users.id, users.name, users.created_at").
		Order("users.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*biz.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, &biz.User{
			ID:         row.ID,
			Name:       row.Name,
			CreatedAt:  row.CreatedAt,
			MovieCount: row.MovieCount,
		})
	}
	return users, nil
}
