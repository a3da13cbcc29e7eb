package data

import (
	"context"
	"errors"
	"fmt"

	"cinecrowd/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

type commentRepo struct {
	data *Data
	log  *log.Helper
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(data *Data, logger log.Logger) biz.CommentRepo {
	return &commentRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *commentRepo) CreateComment(ctx context.Context, c *biz.Comment) error {
	err := r.data.DB(ctx).Create(&Comment{
		ID:         c.ID,
		MovieID:    c.MovieID,
		UserID:     c.UserID,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
		LikesCount: c.LikesCount,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: user or movie does not exist", biz.ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments returns the movie's comments, newest first.
func (r *commentRepo) ListComments(ctx context.Context, movieID string) ([]*biz.Comment, error) {
	var rows []Comment
	err := r.data.DB(ctx).
		Preload("User").
		Where("movie_id = ?", movieID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	comments := make([]*biz.Comment, 0, len(rows))
	for i := range rows {
		c := &biz.Comment{
			ID:         rows[i].ID,
			MovieID:    rows[i].MovieID,
			UserID:     rows[i].UserID,
			Text:       rows[i].Text,
			CreatedAt:  rows[i].CreatedAt,
			LikesCount: rows[i].LikesCount,
		}
		if rows[i].User != nil {
			c.UserName = rows[i].User.Name
		}
		comments = append(comments, c)
	}
	return comments, nil
}
