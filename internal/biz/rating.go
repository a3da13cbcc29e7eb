package biz

import (
	"context"
	"math"

	"github.com/go-kratos/kratos/v2/log"
)

// RatingUseCase keeps the denormalized community rating of movies current.
type RatingUseCase struct {
	movieRepo MovieRepo
	linkRepo  UserMovieRepo
	tx        Transaction
	log       *log.Helper
}

// NewRatingUseCase creates a new RatingUseCase instance
func NewRatingUseCase(movieRepo MovieRepo, linkRepo UserMovieRepo, tx Transaction, logger log.Logger) *RatingUseCase {
	return &RatingUseCase{
		movieRepo: movieRepo,
		linkRepo:  linkRepo,
		tx:        tx,
		log:       log.NewHelper(logger),
	}
}

// Recompute rebuilds the movie's community rating from its seed rating and every
// non-null user rating. Running it twice without an intervening change is a no-op.
func (uc *RatingUseCase) Recompute(ctx context.Context, movieID string) error {
	var (
		rating *float64
		count  int
	)
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		movie, err := uc.movieRepo.GetMovieForUpdate(ctx, movieID)
		if err != nil {
			return err
		}
		ratings, err := uc.linkRepo.MovieRatings(ctx, movieID)
		if err != nil {
			return err
		}
		rating, count = computeAggregate(movie.SeedRating, ratings)
		return uc.movieRepo.UpdateAggregate(ctx, movieID, rating, count)
	})
	if err != nil {
		if IsClientError(err) {
			uc.log.Warnf("movie %s not found for community update", movieID)
		} else {
			uc.log.Errorf("failed to update community rating for movie %s: %v", movieID, err)
		}
		return storageErr("recompute community rating", err)
	}

	if rating != nil {
		uc.log.Infof("updated community rating for movie %s to %.2f (%d ratings)", movieID, *rating, count)
	} else {
		uc.log.Infof("cleared community rating for movie %s", movieID)
	}
	return nil
}

// RecomputeAll recomputes every movie and returns how many failed.
func (uc *RatingUseCase) RecomputeAll(ctx context.Context) (int, error) {
	movies, err := uc.movieRepo.ListMovies(ctx)
	if err != nil {
		return 0, storageErr("list movies", err)
	}
	failed := 0
	for _, m := range movies {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		if err := uc.Recompute(ctx, m.ID); err != nil {
			failed++
		}
	}
	return failed, nil
}

// computeAggregate returns the mean of seed (when set) and ratings rounded to two
// decimals, and the number of values averaged. An empty set yields (nil, 0).
func computeAggregate(seed *float64, ratings []float64) (*float64, int) {
	total, count := 0.0, 0
	if seed != nil {
		total += *seed
		count++
	}
	for _, r := range ratings {
		total += r
		count++
	}
	if count == 0 {
		return nil, 0
	}
	avg := math.Round(total/float64(count)*100) / 100
	return &avg, count
}
