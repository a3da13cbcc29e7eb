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

// ListUseCase manages users' movie lists and personal ratings.
type ListUseCase struct {
	userRepo UserRepo
	linkRepo UserMovieRepo
	movies   *MovieUseCase
	ratings  *RatingUseCase
	tx       Transaction
	log      *log.Helper

	now func() time.Time
}

// NewListUseCase creates a new ListUseCase instance
func NewListUseCase(userRepo UserRepo, linkRepo UserMovieRepo, movies *MovieUseCase, ratings *RatingUseCase, tx Transaction, logger log.Logger) *ListUseCase {
	return &ListUseCase{
		userRepo: userRepo,
		linkRepo: linkRepo,
		movies:   movies,
		ratings:  ratings,
		tx:       tx,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}
}

// ValidateRating accepts nil or a value in [0, 5].
func ValidateRating(rating *float64) error {
	if rating != nil && !(*rating >= 0 && *rating <= 5) {
		return ErrRatingRange
	}
	return nil
}

func (uc *ListUseCase) validateYear(year *int) error {
	if year != nil && *year > uc.now().Year() {
		return ErrFutureYear
	}
	return nil
}

// AddToList resolves (or creates) the referenced movie and puts it in the user's
// list with the given rating, updating the rating when the movie is already listed.
//
// The community rating is recomputed after the link is committed. A failed
// recompute is logged and does not fail the call; the next recompute repairs it.
func (uc *ListUseCase) AddToList(ctx context.Context, userID string, ref *MovieRef, rating *float64) (*Movie, error) {
	ref.Title = strings.TrimSpace(ref.Title)
	ref.ExternalID = strings.TrimSpace(ref.ExternalID)
	if ref.ExternalID == "" && ref.Metadata != nil {
		ref.ExternalID = strings.TrimSpace(ref.Metadata.ExternalID)
	}
	if ref.Title == "" && ref.ExternalID == "" {
		uc.log.Warn("validation failed: empty movie title")
		return nil, ErrEmptyTitle
	}
	if err := uc.validateYear(ref.Year); err != nil {
		uc.log.Warnf("validation failed: year %d > current year", *ref.Year)
		return nil, err
	}
	if err := ValidateRating(rating); err != nil {
		uc.log.Warnf("validation failed: rating %v not in 0-5", *rating)
		return nil, err
	}

	if _, err := uc.userRepo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			uc.log.Warnf("user %s not found", userID)
		}
		return nil, storageErr("get user", err)
	}

	movie, _, err := uc.movies.ResolveOrCreate(ctx, ref)
	if errors.Is(err, ErrInsufficientData) && uc.movies.Enrich(ctx, ref) {
		movie, _, err = uc.movies.ResolveOrCreate(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		link, err := uc.linkRepo.GetLink(ctx, userID, movie.ID)
		switch {
		case errors.Is(err, ErrLinkNotFound):
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate link ID: %w", err)
			}
			return uc.linkRepo.CreateLink(ctx, &UserMovie{
				ID:         id.String(),
				UserID:     userID,
				MovieID:    movie.ID,
				UserRating: rating,
			})
		case err != nil:
			return err
		case !sameRating(link.UserRating, rating):
			return uc.linkRepo.UpdateLinkRating(ctx, link.ID, rating)
		}
		return nil
	})
	if err != nil {
		uc.log.Errorf("failed to link user %s with movie %s: %v", userID, movie.ID, err)
		return nil, storageErr("link movie", err)
	}
	uc.log.Infof("committed changes for movie %s and user %s", movie.ID, userID)

	if err := uc.ratings.Recompute(ctx, movie.ID); err != nil {
		uc.log.Errorf("community rating update failed for movie %s: %v", movie.ID, err)
		return movie, nil
	}
	if fresh, err := uc.movies.repo.GetMovie(ctx, movie.ID); err == nil {
		movie = fresh
	}
	return movie, nil
}

// AddExistingToList puts an already stored movie in the user's list without a rating.
// Listing a movie twice is not an error.
func (uc *ListUseCase) AddExistingToList(ctx context.Context, userID, movieID string) error {
	created := false
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := uc.userRepo.GetUser(ctx, userID); err != nil {
			return err
		}
		if _, err := uc.movies.repo.GetMovie(ctx, movieID); err != nil {
			return err
		}
		_, err := uc.linkRepo.GetLink(ctx, userID, movieID)
		if err == nil {
			uc.log.Infof("movie %s already in user %s's list", movieID, userID)
			return nil
		}
		if !errors.Is(err, ErrLinkNotFound) {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate link ID: %w", err)
		}
		created = true
		return uc.linkRepo.CreateLink(ctx, &UserMovie{ID: id.String(), UserID: userID, MovieID: movieID})
	})
	if err != nil {
		if !IsClientError(err) {
			uc.log.Errorf("failed to add movie %s to user %s: %v", movieID, userID, err)
		}
		return storageErr("add existing movie", err)
	}
	if created {
		uc.log.Infof("added movie %s to user %s list", movieID, userID)
		uc.recompute(ctx, movieID)
	}
	return nil
}

// UpdateRating sets the user's rating for a listed movie; nil clears it.
func (uc *ListUseCase) UpdateRating(ctx context.Context, userID, movieID string, rating *float64) error {
	if err := ValidateRating(rating); err != nil {
		uc.log.Warnf("invalid rating %v for user %s, movie %s", *rating, userID, movieID)
		return err
	}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		link, err := uc.linkRepo.GetLink(ctx, userID, movieID)
		if err != nil {
			return err
		}
		return uc.linkRepo.UpdateLinkRating(ctx, link.ID, rating)
	})
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			uc.log.Warnf("no link for user %s, movie %s", userID, movieID)
		} else if !IsClientError(err) {
			uc.log.Errorf("failed to update rating for user %s, movie %s: %v", userID, movieID, err)
		}
		return storageErr("update rating", err)
	}
	uc.log.Infof("user %s rating for movie %s set to %s", userID, movieID, formatRating(rating))
	uc.recompute(ctx, movieID)
	return nil
}

// RemoveFromList deletes the link; its rating stops counting.
func (uc *ListUseCase) RemoveFromList(ctx context.Context, userID, movieID string) error {
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		link, err := uc.linkRepo.GetLink(ctx, userID, movieID)
		if err != nil {
			return err
		}
		return uc.linkRepo.DeleteLink(ctx, link.ID)
	})
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			uc.log.Warnf("no link to delete for user %s, movie %s", userID, movieID)
		} else if !IsClientError(err) {
			uc.log.Errorf("failed to remove movie %s from user %s: %v", movieID, userID, err)
		}
		return storageErr("remove from list", err)
	}
	uc.log.Infof("removed movie %s from user %s's list", movieID, userID)
	uc.recompute(ctx, movieID)
	return nil
}

// GetUserMovies returns the user's links with their movies, ordered by movie id.
func (uc *ListUseCase) GetUserMovies(ctx context.Context, userID string) ([]*UserMovie, error) {
	if _, err := uc.userRepo.GetUser(ctx, userID); err != nil {
		return nil, storageErr("get user", err)
	}
	links, err := uc.linkRepo.ListUserLinks(ctx, userID)
	if err != nil {
		return nil, storageErr("list user movies", err)
	}
	return links, nil
}

// GetLink returns the link between the user and the movie.
func (uc *ListUseCase) GetLink(ctx context.Context, userID, movieID string) (*UserMovie, error) {
	link, err := uc.linkRepo.GetLink(ctx, userID, movieID)
	if err != nil {
		return nil, storageErr("get link", err)
	}
	return link, nil
}

func (uc *ListUseCase) recompute(ctx context.Context, movieID string) {
	if err := uc.ratings.Recompute(ctx, movieID); err != nil {
		uc.log.Errorf("community rating update failed for movie %s: %v", movieID, err)
	}
}

func sameRating(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatRating(r *float64) string {
	if r == nil {
		return "none"
	}
	return fmt.Sprintf("%.1f", *r)
}
