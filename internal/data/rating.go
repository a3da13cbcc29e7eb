package data

import (
	"context"
	"errors"
	"fmt"

	"cinecrowd/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// userMovieRepo stores list entries and the personal ratings they carry.
type userMovieRepo struct {
	data *Data
	log  *log.Helper
}

// NewUserMovieRepo creates a new list entry repository
func NewUserMovieRepo(data *Data, logger log.Logger) biz.UserMovieRepo {
	return &userMovieRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *userMovieRepo) GetLink(ctx context.Context, userID, movieID string) (*biz.UserMovie, error) {
	var link UserMovie
	err := r.data.DB(ctx).
		Preload("Movie").
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to query list entry: %w", err)
	}
	return modelToLink(&link), nil
}

func (r *userMovieRepo) CreateLink(ctx context.Context, link *biz.UserMovie) error {
	err := r.data.DB(ctx).Create(&UserMovie{
		ID:         link.ID,
		UserID:     link.UserID,
		MovieID:    link.MovieID,
		UserRating: link.UserRating,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: movie already in list", biz.ErrConflict)
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: user or movie does not exist", biz.ErrNotFound)
		}
		return fmt.Errorf("failed to create list entry: %w", err)
	}
	return nil
}

func (r *userMovieRepo) UpdateLinkRating(ctx context.Context, id string, rating *float64) error {
	result := r.data.DB(ctx).Model(&UserMovie{}).Where("id = ?", id).Update("user_rating", rating)
	if result.Error != nil {
		return fmt.Errorf("failed to update rating: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrLinkNotFound
	}
	return nil
}

func (r *userMovieRepo) DeleteLink(ctx context.Context, id string) error {
	result := r.data.DB(ctx).Where("id = ?", id).Delete(&UserMovie{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete list entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrLinkNotFound
	}
	return nil
}

func (r *userMovieRepo) ListUserLinks(ctx context.Context, userID string) ([]*biz.UserMovie, error) {
	var rows []UserMovie
	err := r.data.DB(ctx).
		Preload("Movie").
		Where("user_id = ?", userID).
		Order("movie_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user movies: %w", err)
	}
	links := make([]*biz.UserMovie, 0, len(rows))
	for i := range rows {
		links = append(links, modelToLink(&rows[i]))
	}
	return links, nil
}

// MovieRatings returns the non-null personal ratings of a movie.
func (r *userMovieRepo) MovieRatings(ctx context.Context, movieID string) ([]float64, error) {
	var ratings []float64
	err := r.data.DB(ctx).
		Model(&UserMovie{}).
		Where("movie_id = ? AND user_rating IS NOT NULL", movieID).
		Order("id").
		Pluck("user_rating", &ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	return ratings, nil
}

func modelToLink(m *UserMovie) *biz.UserMovie {
	link := &biz.UserMovie{
		ID:         m.ID,
		UserID:     m.UserID,
		MovieID:    m.MovieID,
		UserRating: m.UserRating,
	}
	if m.Movie != nil {
		link.Movie = modelToMovie(m.Movie)
	}
	return link
}
