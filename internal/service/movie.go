package service

import (
	"context"
	"errors"

	"cinecrowd/internal/biz"
	"cinecrowd/internal/cache"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultTopLimit = 10

// MovieService serves movies, comments and metadata lookups.
type MovieService struct {
	movies   *biz.MovieUseCase
	comments *biz.CommentUseCase
	cache    cache.Cache
	log      *log.Helper
}

// NewMovieService creates a new MovieService
func NewMovieService(movies *biz.MovieUseCase, comments *biz.CommentUseCase, c cache.Cache, logger log.Logger) *MovieService {
	return &MovieService{
		movies:   movies,
		comments: comments,
		cache:    c,
		log:      log.NewHelper(logger),
	}
}

func (s *MovieService) ListMovies(ctx context.Context, _ *ListMoviesRequest) (*ListMoviesReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("movies"), func() (*ListMoviesReply, error) {
		movies, err := s.movies.ListMovies(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*MovieReply, 0, len(movies))
		for _, m := range movies {
			out = append(out, movieToReply(m))
		}
		return &ListMoviesReply{Movies: out}, nil
	})
	return reply, toStatus(err)
}

func (s *MovieService) TopMovies(ctx context.Context, req *TopMoviesRequest) (*TopMoviesReply, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopLimit
	}
	reply, err := cached(ctx, s.cache, cache.Key("top", limit), func() (*TopMoviesReply, error) {
		stats, err := s.movies.TopMovies(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]*TopMovieReply, 0, len(stats))
		for _, st := range stats {
			out = append(out, &TopMovieReply{Movie: movieToReply(st.Movie), UserCount: st.UserCount})
		}
		return &TopMoviesReply{Movies: out}, nil
	})
	return reply, toStatus(err)
}

func (s *MovieService) GetMovie(ctx context.Context, req *MovieRequest) (*GetMovieReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("movie", req.MovieID), func() (*GetMovieReply, error) {
		movie, err := s.movies.GetMovie(ctx, req.MovieID)
		if err != nil {
			return nil, err
		}
		comments, err := s.comments.ListComments(ctx, req.MovieID)
		if err != nil {
			return nil, err
		}
		return &GetMovieReply{Movie: movieToReply(movie), Comments: commentsToReply(comments)}, nil
	})
	return reply, toStatus(err)
}

func (s *MovieService) DeleteMovie(ctx context.Context, req *MovieRequest) (*EmptyReply, error) {
	if err := s.movies.DeleteMovie(ctx, req.MovieID); err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &EmptyReply{}, nil
}

func (s *MovieService) ListComments(ctx context.Context, req *MovieRequest) (*ListCommentsReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("comments", req.MovieID), func() (*ListCommentsReply, error) {
		comments, err := s.comments.ListComments(ctx, req.MovieID)
		if err != nil {
			return nil, err
		}
		return &ListCommentsReply{Comments: commentsToReply(comments)}, nil
	})
	return reply, toStatus(err)
}

// AddComment posts as the user carried in the request context.
func (s *MovieService) AddComment(ctx context.Context, req *AddCommentRequest) (*AddCommentReply, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, kerrors.Unauthorized(ReasonUnauthorized, "missing X-User-Id header")
	}
	comment, err := s.comments.AddComment(ctx, req.MovieID, userID, req.Text)
	if err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &AddCommentReply{Comment: commentToReply(comment)}, nil
}

// ResolveMovie returns the movie with the given external id, creating it from
// the supplied or fetched metadata when it is not stored yet.
func (s *MovieService) ResolveMovie(ctx context.Context, req *ResolveMovieRequest) (*ResolveMovieReply, error) {
	ref := &biz.MovieRef{
		ExternalID: req.ExternalID,
		Title:      req.Title,
		Year:       req.Year,
		Metadata:   metadataFromRequest(req.Metadata),
	}
	movie, res, err := s.movies.Resolve(ctx, ref)
	if errors.Is(err, biz.ErrInsufficientData) && s.movies.Enrich(ctx, ref) {
		movie, res, err = s.movies.Resolve(ctx, ref)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	if res != biz.ResolutionFound {
		s.cache.Purge(ctx)
	}
	return &ResolveMovieReply{Movie: movieToReply(movie), Created: res == biz.ResolutionCreated}, nil
}

func (s *MovieService) LookupMetadata(ctx context.Context, req *MetadataRequest) (*MetadataLookupReply, error) {
	md, err := s.movies.LookupMetadata(ctx, &biz.MetadataQuery{
		Title:      req.Title,
		ExternalID: req.ExternalID,
		Year:       req.Year,
		Plot:       req.Plot,
	})
	if err != nil {
		s.log.Warnf("metadata lookup failed: %v", err)
		return nil, toStatus(err)
	}
	return &MetadataLookupReply{Metadata: metadataToReply(md)}, nil
}
