package data

import (
	"context"
	"errors"
	"fmt"

	"cinecrowd/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type movieRepo struct {
	data *Data
	log  *log.Helper
}

// NewMovieRepo creates a new movie repository
func NewMovieRepo(data *Data, logger log.Logger) biz.MovieRepo {
	return &movieRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *movieRepo) CreateMovie(ctx context.Context, movie *biz.Movie) error {
	if err := r.data.DB(ctx).Create(movieToModel(movie)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return biz.ErrDuplicateExternalID
		}
		return fmt.Errorf("failed to create movie: %w", err)
	}
	return nil
}

func (r *movieRepo) GetMovie(ctx context.Context, id string) (*biz.Movie, error) {
	var m Movie
	if err := r.data.DB(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, movieLookupErr(err)
	}
	return modelToMovie(&m), nil
}

// GetMovieForUpdate reads the movie and locks its row until the surrounding
// transaction ends. SQLite ignores the lock.
func (r *movieRepo) GetMovieForUpdate(ctx context.Context, id string) (*biz.Movie, error) {
	var m Movie
	err := r.data.DB(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, movieLookupErr(err)
	}
	return modelToMovie(&m), nil
}

func (r *movieRepo) GetMovieByExternalID(ctx context.Context, externalID string) (*biz.Movie, error) {
	var m Movie
	if err := r.data.DB(ctx).Where("external_id = ?", externalID).First(&m).Error; err != nil {
		return nil, movieLookupErr(err)
	}
	return modelToMovie(&m), nil
}

func (r *movieRepo) FindByTitleYear(ctx context.Context, title string, year int) (*biz.Movie, error) {
	var m Movie
	err := r.data.DB(ctx).
		Where("LOWER(title) = LOWER(?) AND year = ?", title, year).
		Order("created_at").
		First(&m).Error
	if err != nil {
		return nil, movieLookupErr(err)
	}
	return modelToMovie(&m), nil
}

func (r *movieRepo) ListMovies(ctx context.Context) ([]*biz.Movie, error) {
	var rows []Movie
	if err := r.data.DB(ctx).Order("title").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	movies := make([]*biz.Movie, 0, len(rows))
	for i := range rows {
		movies = append(movies, modelToMovie(&rows[i]))
	}
	return movies, nil
}

// movieWithCount is the scan target of the top movies query.
type movieWithCount struct {
	Movie
	UserCount int
}

func (r *movieRepo) TopMovies(ctx context.Context, limit int) ([]*biz.MovieStat, error) {
	var rows []movieWithCount
	err := r.data.DB(ctx).
		Table("movies").
		Select("movies.*, COUNT(user_movies.id) AS user_count").
		Joins("JOIN user_movies ON user_movies.movie_id = movies.id").
		Group("movies.id").
		Order("user_count DESC").
		Order("movies.community_rating DESC NULLS LAST").
		Order("movies.id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top movies: %w", err)
	}

	stats := make([]*biz.MovieStat, 0, len(rows))
	for i := range rows {
		stats = append(stats, &biz.MovieStat{
			Movie:     modelToMovie(&rows[i].Movie),
			UserCount: rows[i].UserCount,
		})
	}
	return stats, nil
}

func (r *movieRepo) SetExternalID(ctx context.Context, id, externalID string) error {
	result := r.data.DB(ctx).Model(&Movie{}).Where("id = ?", id).Update("external_id", externalID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return biz.ErrDuplicateExternalID
		}
		return fmt.Errorf("failed to set external id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrMovieNotFound
	}
	return nil
}

func (r *movieRepo) UpdateAggregate(ctx context.Context, id string, rating *float64, count int) error {
	result := r.data.DB(ctx).Model(&Movie{}).Where("id = ?", id).Updates(map[string]interface{}{
		"community_rating":       rating,
		"community_rating_count": count,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update community rating: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrMovieNotFound
	}
	return nil
}

// DeleteMovie removes the movie with its links and comments. The caller is
// expected to run it inside a transaction.
func (r *movieRepo) DeleteMovie(ctx context.Context, id string) error {
	db := r.data.DB(ctx)
	if err := db.Where("movie_id = ?", id).Delete(&Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := db.Where("movie_id = ?", id).Delete(&UserMovie{}).Error; err != nil {
		return fmt.Errorf("failed to delete list entries: %w", err)
	}
	result := db.Where("id = ?", id).Delete(&Movie{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete movie: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrMovieNotFound
	}
	r.log.Debugf("deleted movie %s", id)
	return nil
}

func movieLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return biz.ErrMovieNotFound
	}
	return fmt.Errorf("failed to query movie: %w", err)
}

// Helper: Convert biz.Movie to data.Movie
func movieToModel(m *biz.Movie) *Movie {
	return &Movie{
		ID:                   m.ID,
		Title:                m.Title,
		Year:                 m.Year,
		ExternalID:           m.ExternalID,
		Director:             m.Director,
		Writer:               m.Writer,
		Actors:               m.Actors,
		Runtime:              m.Runtime,
		Genre:                m.Genre,
		Plot:                 m.Plot,
		Language:             m.Language,
		Country:              m.Country,
		Awards:               m.Awards,
		PosterURL:            m.PosterURL,
		Metascore:            m.Metascore,
		Rated:                m.Rated,
		CommunityRating:      m.CommunityRating,
		CommunityRatingCount: m.CommunityRatingCount,
		SeedRating:           m.SeedRating,
	}
}

// Helper: Convert data.Movie to biz.Movie
func modelToMovie(m *Movie) *biz.Movie {
	return &biz.Movie{
		ID:                   m.ID,
		Title:                m.Title,
		Year:                 m.Year,
		ExternalID:           m.ExternalID,
		Director:             m.Director,
		Writer:               m.Writer,
		Actors:               m.Actors,
		Runtime:              m.Runtime,
		Genre:                m.Genre,
		Plot:                 m.Plot,
		Language:             m.Language,
		Country:              m.Country,
		Awards:               m.Awards,
		PosterURL:            m.PosterURL,
		Metascore:            m.Metascore,
		Rated:                m.Rated,
		CommunityRating:      m.CommunityRating,
		CommunityRatingCount: m.CommunityRatingCount,
		SeedRating:           m.SeedRating,
	}
}
