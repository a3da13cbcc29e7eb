package service

import (
	"net/http"
	"time"

	"cinecrowd/internal/biz"
)

// StatusResponse lets a reply choose its HTTP status code.
type StatusResponse interface {
	HTTPStatus() int
}

type EmptyReply struct{}

type UserReply struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	MovieCount int       `json:"movie_count"`
}

type ListUsersRequest struct{}

type ListUsersReply struct {
	Users []*UserReply `json:"users"`
}

type RegisterRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type RegisterReply struct {
	User *UserReply `json:"user"`
}

func (*RegisterReply) HTTPStatus() int { return http.StatusCreated }

type GetUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type GetUserReply struct {
	User   *UserReply        `json:"user"`
	Movies []*UserMovieReply `json:"movies"`
}

type UserMoviesReply struct {
	Movies []*UserMovieReply `json:"movies"`
}

type UserMovieReply struct {
	Movie      *MovieReply `json:"movie"`
	UserRating *float64    `json:"user_rating"`
}

type MovieReply struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Year                 *int     `json:"year"`
	ExternalID           *string  `json:"external_id"`
	Director             *string  `json:"director"`
	Writer               *string  `json:"writer"`
	Actors               *string  `json:"actors"`
	Runtime              *string  `json:"runtime"`
	Genre                *string  `json:"genre"`
	Plot                 *string  `json:"plot"`
	Language             *string  `json:"language"`
	Country              *string  `json:"country"`
	Awards               *string  `json:"awards"`
	PosterURL            *string  `json:"poster_url"`
	Metascore            *string  `json:"metascore"`
	Rated                *string  `json:"rated"`
	CommunityRating      *float64 `json:"community_rating"`
	CommunityRatingCount int      `json:"community_rating_count"`
	SeedRating           *float64 `json:"seed_rating"`
}

// MetadataReply is a provider record as exposed to clients. Clients may send it
// back when adding a movie so the server does not have to fetch it again.
type MetadataReply struct {
	ExternalID string `json:"external_id" validate:"max=20"`
	Title      string `json:"title" validate:"max=255"`
	Year       string `json:"year"`
	PosterURL  string `json:"poster_url" validate:"max=255"`
	Director   string `json:"director" validate:"max=255"`
	Plot       string `json:"plot"`
	Runtime    string `json:"runtime" validate:"max=50"`
	Awards     string `json:"awards"`
	Language   string `json:"language" validate:"max=255"`
	Genre      string `json:"genre" validate:"max=255"`
	Actors     string `json:"actors"`
	Writer     string `json:"writer"`
	Country    string `json:"country" validate:"max=255"`
	Metascore  string `json:"metascore" validate:"max=10"`
	Rated      string `json:"rated" validate:"max=20"`
	Rating10   string `json:"rating10"`
}

type AddToListRequest struct {
	UserID     string         `json:"user_id" validate:"required"`
	ExternalID string         `json:"external_id" validate:"max=20"`
	Title      string         `json:"title" validate:"max=255"`
	Year       *int           `json:"year" validate:"omitempty,gte=1"`
	Rating     *float64       `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Metadata   *MetadataReply `json:"metadata"`
}

type AddToListReply struct {
	Movie *MovieReply `json:"movie"`
}

func (*AddToListReply) HTTPStatus() int { return http.StatusCreated }

type UserMovieRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	MovieID string `json:"movie_id" validate:"required"`
}

type UpdateRatingRequest struct {
	UserID  string   `json:"user_id" validate:"required"`
	MovieID string   `json:"movie_id" validate:"required"`
	Rating  *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
}

type ListMoviesRequest struct{}

type ListMoviesReply struct {
	Movies []*MovieReply `json:"movies"`
}

type TopMoviesRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

type TopMovieReply struct {
	Movie     *MovieReply `json:"movie"`
	UserCount int         `json:"user_count"`
}

type TopMoviesReply struct {
	Movies []*TopMovieReply `json:"movies"`
}

type MovieRequest struct {
	MovieID string `json:"movie_id" validate:"required"`
}

type GetMovieReply struct {
	Movie    *MovieReply     `json:"movie"`
	Comments []*CommentReply `json:"comments"`
}

type CommentReply struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movie_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	LikesCount int       `json:"likes_count"`
}

type ListCommentsReply struct {
	Comments []*CommentReply `json:"comments"`
}

type AddCommentRequest struct {
	MovieID string `json:"movie_id" validate:"required"`
	Text    string `json:"text" validate:"required,max=2000"`
}

type AddCommentReply struct {
	Comment *CommentReply `json:"comment"`
}

func (*AddCommentReply) HTTPStatus() int { return http.StatusCreated }

type ResolveMovieRequest struct {
	ExternalID string         `json:"external_id" validate:"required,max=20"`
	Title      string         `json:"title" validate:"max=255"`
	Year       *int           `json:"year" validate:"omitempty,gte=1"`
	Metadata   *MetadataReply `json:"metadata"`
}

type ResolveMovieReply struct {
	Movie   *MovieReply `json:"movie"`
	Created bool        `json:"created"`
}

func (r *ResolveMovieReply) HTTPStatus() int {
	if r.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type MetadataRequest struct {
	Title      string `json:"title" validate:"max=255"`
	ExternalID string `json:"external_id" validate:"max=20"`
	Year       string `json:"year" validate:"omitempty,numeric,len=4"`
	Plot       string `json:"plot" validate:"omitempty,oneof=short full"`
}

type MetadataLookupReply struct {
	Metadata *MetadataReply `json:"metadata"`
}

func userToReply(u *biz.User) *UserReply {
	return &UserReply{
		ID:         u.ID,
		Name:       u.Name,
		CreatedAt:  u.CreatedAt,
		MovieCount: u.MovieCount,
	}
}

func movieToReply(m *biz.Movie) *MovieReply {
	if m == nil {
		return nil
	}
	return &MovieReply{
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

func linksToReply(links []*biz.UserMovie) []*UserMovieReply {
	out := make([]*UserMovieReply, 0, len(links))
	for _, l := range links {
		out = append(out, &UserMovieReply{Movie: movieToReply(l.Movie), UserRating: l.UserRating})
	}
	return out
}

func commentToReply(c *biz.Comment) *CommentReply {
	return &CommentReply{
		ID:         c.ID,
		MovieID:    c.MovieID,
		UserID:     c.UserID,
		UserName:   c.UserName,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
		LikesCount: c.LikesCount,
	}
}

func commentsToReply(cs []*biz.Comment) []*CommentReply {
	out := make([]*CommentReply, 0, len(cs))
	for _, c := range cs {
		out = append(out, commentToReply(c))
	}
	return out
}

func metadataToReply(md *biz.ExternalMovie) *MetadataReply {
	return &MetadataReply{
		ExternalID: md.ExternalID,
		Title:      md.Title,
		Year:       md.YearText,
		PosterURL:  md.PosterURL,
		Director:   md.Director,
		Plot:       md.Plot,
		Runtime:    md.Runtime,
		Awards:     md.Awards,
		Language:   md.Language,
		Genre:      md.Genre,
		Actors:     md.Actors,
		Writer:     md.Writer,
		Country:    md.Country,
		Metascore:  md.Metascore,
		Rated:      md.Rated,
		Rating10:   md.Rating10,
	}
}

func metadataFromRequest(md *MetadataReply) *biz.ExternalMovie {
	if md == nil {
		return nil
	}
	return &biz.ExternalMovie{
		ExternalID: md.ExternalID,
		Title:      md.Title,
		YearText:   md.Year,
		PosterURL:  md.PosterURL,
		Director:   md.Director,
		Plot:       md.Plot,
		Runtime:    md.Runtime,
		Awards:     md.Awards,
		Language:   md.Language,
		Genre:      md.Genre,
		Actors:     md.Actors,
		Writer:     md.Writer,
		Country:    md.Country,
		Metascore:  md.Metascore,
		Rated:      md.Rated,
		Rating10:   md.Rating10,
	}
}
