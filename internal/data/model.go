package data

import (
	"time"
)

// User represents the users table
type User struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"uniqueIndex;not null;size:100"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Movie represents the movies table
type Movie struct {
	ID         string  `gorm:"primaryKey;size:64"`
	Title      string  `gorm:"not null;size:255;index:idx_movies_title,expression:LOWER(title)"`
	Year       *int    `gorm:"index:idx_movies_year"`
	ExternalID *string `gorm:"column:external_id;uniqueIndex;size:20"`

	Director  *string `gorm:"size:255"`
	Writer    *string `gorm:"type:text"`
	Actors    *string `gorm:"type:text"`
	Runtime   *string `gorm:"size:50"`
	Genre     *string `gorm:"size:255"`
	Plot      *string `gorm:"type:text"`
	Language  *string `gorm:"size:255"`
	Country   *string `gorm:"size:255"`
	Awards    *string `gorm:"type:text"`
	PosterURL *string `gorm:"column:poster_url;size:255"`
	Metascore *string `gorm:"size:10"`
	Rated     *string `gorm:"size:20"`

	// Derived by the rating aggregator
	CommunityRating      *float64 `gorm:"check:chk_movies_community_rating,community_rating IS NULL OR (community_rating >= 0 AND community_rating <= 5)"`
	CommunityRatingCount int      `gorm:"not null;default:0"`
	SeedRating           *float64 `gorm:"check:chk_movies_seed_rating,seed_rating IS NULL OR (seed_rating >= 0 AND seed_rating <= 5)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name
func (Movie) TableName() string {
	return "movies"
}

// UserMovie represents the user_movies table
type UserMovie struct {
	ID         string   `gorm:"primaryKey;size:64"`
	UserID     string   `gorm:"not null;size:64;uniqueIndex:uq_user_movie"`
	MovieID    string   `gorm:"not null;size:64;uniqueIndex:uq_user_movie;index:idx_user_movies_movie_id"`
	UserRating *float64 `gorm:"check:chk_user_movies_rating,user_rating IS NULL OR (user_rating >= 0 AND user_rating <= 5)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Foreign keys
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Movie *Movie `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (UserMovie) TableName() string {
	return "user_movies"
}

// Comment represents the comments table
type Comment struct {
	ID         string    `gorm:"primaryKey;size:64"`
	MovieID    string    `gorm:"not null;size:64;index:idx_comments_movie_created,priority:1"`
	UserID     string    `gorm:"not null;size:64;index:idx_comments_user_id"`
	Text       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index:idx_comments_movie_created,priority:2"`
	LikesCount int       `gorm:"not null;default:0"`

	// Foreign keys
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Movie *Movie `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (Comment) TableName() string {
	return "comments"
}
