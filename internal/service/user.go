package service

import (
	"context"

	"cinecrowd/internal/biz"
	"cinecrowd/internal/cache"

	"github.com/go-kratos/kratos/v2/log"
)

// UserService serves users and their movie lists.
type UserService struct {
	users *biz.UserUseCase
	lists *biz.ListUseCase
	cache cache.Cache
	log   *log.Helper
}

// NewUserService creates a new UserService
func NewUserService(users *biz.UserUseCase, lists *biz.ListUseCase, c cache.Cache, logger log.Logger) *UserService {
	return &UserService{
		users: users,
		lists: lists,
		cache: c,
		log:   log.NewHelper(logger),
	}
}

func (s *UserService) ListUsers(ctx context.Context, _ *ListUsersRequest) (*ListUsersReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("users"), func() (*ListUsersReply, error) {
		users, err := s.users.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*UserReply, 0, len(users))
		for _, u := range users {
			out = append(out, userToReply(u))
		}
		return &ListUsersReply{Users: out}, nil
	})
	return reply, toStatus(err)
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*RegisterReply, error) {
	user, err := s.users.Register(ctx, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &RegisterReply{User: userToReply(user)}, nil
}

func (s *UserService) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("user", req.UserID), func() (*GetUserReply, error) {
		user, err := s.users.GetUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		links, err := s.lists.GetUserMovies(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		u := userToReply(user)
		u.MovieCount = len(links)
		return &GetUserReply{User: u, Movies: linksToReply(links)}, nil
	})
	return reply, toStatus(err)
}

func (s *UserService) GetUserMovies(ctx context.Context, req *GetUserRequest) (*UserMoviesReply, error) {
	reply, err := cached(ctx, s.cache, cache.Key("user-movies", req.UserID), func() (*UserMoviesReply, error) {
		links, err := s.lists.GetUserMovies(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		return &UserMoviesReply{Movies: linksToReply(links)}, nil
	})
	return reply, toStatus(err)
}

func (s *UserService) AddToList(ctx context.Context, req *AddToListRequest) (*AddToListReply, error) {
	ref := &biz.MovieRef{
		ExternalID: req.ExternalID,
		Title:      req.Title,
		Year:       req.Year,
		Metadata:   metadataFromRequest(req.Metadata),
	}
	movie, err := s.lists.AddToList(ctx, req.UserID, ref, req.Rating)
	if err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &AddToListReply{Movie: movieToReply(movie)}, nil
}

func (s *UserService) AddExistingToList(ctx context.Context, req *UserMovieRequest) (*EmptyReply, error) {
	if err := s.lists.AddExistingToList(ctx, req.UserID, req.MovieID); err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &EmptyReply{}, nil
}

func (s *UserService) UpdateRating(ctx context.Context, req *UpdateRatingRequest) (*UserMovieReply, error) {
	if err := s.lists.UpdateRating(ctx, req.UserID, req.MovieID, req.Rating); err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	link, err := s.lists.GetLink(ctx, req.UserID, req.MovieID)
	if err != nil {
		return nil, toStatus(err)
	}
	reply := &UserMovieReply{UserRating: link.UserRating}
	if link.Movie != nil {
		reply.Movie = movieToReply(link.Movie)
	}
	return reply, nil
}

func (s *UserService) RemoveFromList(ctx context.Context, req *UserMovieRequest) (*EmptyReply, error) {
	if err := s.lists.RemoveFromList(ctx, req.UserID, req.MovieID); err != nil {
		return nil, toStatus(err)
	}
	s.cache.Purge(ctx)
	return &EmptyReply{}, nil
}
