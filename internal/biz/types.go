package biz

import (
	"context"
	"time"
)

// User domain model
type User struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	MovieCount int
}

// Movie domain model
type Movie struct {
	ID         string
	Title      string
	Year       *int
	ExternalID *string

	Director  *string
	Writer    *string
	Actors    *string
	Runtime   *string
	Genre     *string
	Plot      *string
	Language  *string
	Country   *string
	Awards    *string
	PosterURL *string
	Metascore *string
	Rated     *string

	CommunityRating      *float64
	CommunityRatingCount int
	SeedRating           *float64
}

// UserMovie is the rating link between a user and a movie.
type UserMovie struct {
	ID         string
	UserID     string
	MovieID    string
	UserRating *float64
	Movie      *Movie
}

// Comment domain model
type Comment struct {
	ID         string
	MovieID    string
	UserID     string
	UserName   string
	Text       string
	CreatedAt  time.Time
	LikesCount int
}

// ExternalMovie is a record as supplied by the metadata provider. Any field may be empty.
type ExternalMovie struct {
	ExternalID string
	Title      string
	YearText   string
	PosterURL  string
	Director   string
	Plot       string
	Runtime    string
	Awards     string
	Language   string
	Genre      string
	Actors     string
	Writer     string
	Country    string
	Metascore  string
	Rated      string
	// Rating10 is the provider rating on a 0-10 scale, as text.
	Rating10 string
}

// MovieRef identifies a movie to resolve, optionally carrying metadata to create it from.
type MovieRef struct {
	ExternalID string
	Title      string
	Year       *int
	Metadata   *ExternalMovie
}

// MovieStat is a movie with its list-membership count.
type MovieStat struct {
	Movie     *Movie
	UserCount int
}

// MetadataQuery selects a record from the metadata provider.
type MetadataQuery struct {
	Title      string
	ExternalID string
	Year       string
	Plot       string
}

// Transaction runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn take part in it.
type Transaction interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepo defines the repository interface for users
type UserRepo interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
}

// MovieRepo defines the repository interface for movies
type MovieRepo interface {
	CreateMovie(ctx context.Context, movie *Movie) error
	GetMovie(ctx context.Context, id string) (*Movie, error)
	// GetMovieForUpdate is GetMovie holding a row lock for the rest of the transaction.
	GetMovieForUpdate(ctx context.Context, id string) (*Movie, error)
	GetMovieByExternalID(ctx context.Context, externalID string) (*Movie, error)
	FindByTitleYear(ctx context.Context, title string, year int) (*Movie, error)
	ListMovies(ctx context.Context) ([]*Movie, error)
	TopMovies(ctx context.Context, limit int) ([]*MovieStat, error)
	SetExternalID(ctx context.Context, id, externalID string) error
	UpdateAggregate(ctx context.Context, id string, rating *float64, count int) error
	DeleteMovie(ctx context.Context, id string) error
}

// UserMovieRepo defines the repository interface for rating links
type UserMovieRepo interface {
	GetLink(ctx context.Context, userID, movieID string) (*UserMovie, error)
	CreateLink(ctx context.Context, link *UserMovie) error
	UpdateLinkRating(ctx context.Context, id string, rating *float64) error
	DeleteLink(ctx context.Context, id string) error
	ListUserLinks(ctx context.Context, userID string) ([]*UserMovie, error)
	// MovieRatings returns every non-null user rating recorded for the movie.
	MovieRatings(ctx context.Context, movieID string) ([]float64, error)
}

// CommentRepo defines the repository interface for comments
type CommentRepo interface {
	CreateComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, movieID string) ([]*Comment, error)
}

// MetadataClient defines the interface for the external metadata provider
type MetadataClient interface {
	Lookup(ctx context.Context, q *MetadataQuery) (*ExternalMovie, error)
}
