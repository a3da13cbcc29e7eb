package biz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// yearSeparators are the dash-like characters a provider may use in year ranges ("2010–2012").
const yearSeparators = "-‐‑‒–—―"

// MovieUseCase resolves, creates and queries movies.
type MovieUseCase struct {
	repo     MovieRepo
	metadata MetadataClient
	tx       Transaction
	log      *log.Helper

	creating singleflight.Group
	now      func() time.Time
}

// NewMovieUseCase creates a new MovieUseCase instance
func NewMovieUseCase(repo MovieRepo, metadata MetadataClient, tx Transaction, logger log.Logger) *MovieUseCase {
	return &MovieUseCase{
		repo:     repo,
		metadata: metadata,
		tx:       tx,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}
}

// Resolution reports what resolving a movie reference did to storage.
type Resolution int

const (
	// ResolutionFound means an existing movie matched and nothing was written.
	ResolutionFound Resolution = iota
	// ResolutionBackfilled means a title and year match got its missing external id.
	ResolutionBackfilled
	// ResolutionCreated means this call inserted the movie.
	ResolutionCreated
)

// ResolveOrCreate finds the movie ref points at, or creates it from ref.Metadata.
// created is true only when this call inserted the row.
func (uc *MovieUseCase) ResolveOrCreate(ctx context.Context, ref *MovieRef) (*Movie, bool, error) {
	movie, res, err := uc.Resolve(ctx, ref)
	return movie, res == ResolutionCreated, err
}

// Resolve is ResolveOrCreate reporting the write it performed.
//
// Lookup order: external id, then case-insensitive title plus exact year (backfilling a
// missing external id), then creation from metadata. Concurrent creations of the same
// external id share one insert; only the caller that ran it sees ResolutionCreated.
func (uc *MovieUseCase) Resolve(ctx context.Context, ref *MovieRef) (*Movie, Resolution, error) {
	externalID := strings.TrimSpace(ref.ExternalID)
	if externalID == "" && ref.Metadata != nil {
		externalID = strings.TrimSpace(ref.Metadata.ExternalID)
	}
	title := strings.TrimSpace(ref.Title)

	movie, backfilled, err := uc.lookup(ctx, externalID, title, ref.Year)
	if err == nil {
		if backfilled {
			return movie, ResolutionBackfilled, nil
		}
		return movie, ResolutionFound, nil
	}
	if !errors.Is(err, ErrMovieNotFound) {
		uc.log.Errorf("failed to resolve movie '%s' (external id '%s'): %v", title, externalID, err)
		return nil, ResolutionFound, err
	}

	if ref.Metadata == nil {
		uc.log.Warnf("movie '%s' not found and no metadata provided", title)
		return nil, ResolutionFound, ErrInsufficientData
	}
	if externalID == "" {
		uc.log.Warnf("cannot create movie '%s': metadata has no external id", title)
		return nil, ResolutionFound, ErrInsufficientData
	}

	// Callers waiting on the same external id share this insert; it outlives
	// the request that runs it.
	leader := false
	v, err, _ := uc.creating.Do(externalID, func() (interface{}, error) {
		leader = true
		return uc.create(context.WithoutCancel(ctx), externalID, ref)
	})
	if errors.Is(err, ErrDuplicateExternalID) {
		// Another writer won the insert; its row is now visible.
		existing, lookupErr := uc.repo.GetMovieByExternalID(ctx, externalID)
		if lookupErr != nil {
			return nil, ResolutionFound, storageErr("resolve after conflict", lookupErr)
		}
		return existing, ResolutionFound, nil
	}
	if err != nil {
		uc.log.Errorf("failed to create movie '%s' (external id '%s'): %v", title, externalID, err)
		return nil, ResolutionFound, err
	}
	res := v.(*createResult)
	if res.created && leader {
		return res.movie, ResolutionCreated, nil
	}
	return res.movie, ResolutionFound, nil
}

type createResult struct {
	movie   *Movie
	created bool
}

func (uc *MovieUseCase) lookup(ctx context.Context, externalID, title string, year *int) (*Movie, bool, error) {
	var (
		found      *Movie
		backfilled bool
	)
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if externalID != "" {
			movie, err := uc.repo.GetMovieByExternalID(ctx, externalID)
			if err == nil {
				uc.log.Infof("found movie by external id '%s' (ID: %s)", externalID, movie.ID)
				found = movie
				return nil
			}
			if !errors.Is(err, ErrMovieNotFound) {
				return err
			}
		}

		if title == "" || year == nil {
			return ErrMovieNotFound
		}
		movie, err := uc.repo.FindByTitleYear(ctx, title, *year)
		if err != nil {
			return err
		}
		uc.log.Infof("found movie '%s' (%d) (ID: %s)", title, *year, movie.ID)
		if externalID != "" && movie.ExternalID == nil {
			if err := uc.repo.SetExternalID(ctx, movie.ID, externalID); err != nil {
				return err
			}
			movie.ExternalID = &externalID
			backfilled = true
			uc.log.Infof("updated external id for movie %s to '%s'", movie.ID, externalID)
		}
		found = movie
		return nil
	})
	if err != nil {
		return nil, false, storageErr("lookup movie", err)
	}
	return found, backfilled, nil
}

func (uc *MovieUseCase) create(ctx context.Context, externalID string, ref *MovieRef) (*createResult, error) {
	var res createResult
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.GetMovieByExternalID(ctx, externalID)
		if err == nil {
			uc.log.Infof("movie with external id %s exists (ID: %s)", externalID, existing.ID)
			res.movie = existing
			return nil
		}
		if !errors.Is(err, ErrMovieNotFound) {
			return err
		}

		movie := uc.movieFromMetadata(ref.Metadata)
		movie.ExternalID = &externalID
		if movie.Title == "" {
			movie.Title = strings.TrimSpace(ref.Title)
		}
		if movie.Title == "" {
			return ErrEmptyTitle
		}
		if movie.Year == nil && optional(ref.Metadata.YearText) == nil && ref.Year != nil {
			movie.Year = ref.Year
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate movie ID: %w", err)
		}
		movie.ID = id.String()
		movie.CommunityRating, movie.CommunityRatingCount = computeAggregate(movie.SeedRating, nil)

		if err := uc.repo.CreateMovie(ctx, movie); err != nil {
			return err
		}
		uc.log.Infof("created movie '%s' (ID: %s, external id: %s)", movie.Title, movie.ID, externalID)
		res.movie = movie
		res.created = true
		return nil
	})
	if err != nil {
		return nil, storageErr("create movie", err)
	}
	return &res, nil
}

// movieFromMetadata normalizes a provider record into an unsaved Movie.
func (uc *MovieUseCase) movieFromMetadata(md *ExternalMovie) *Movie {
	movie := &Movie{
		Title:     strings.TrimSpace(md.Title),
		Director:  optional(md.Director),
		Writer:    optional(md.Writer),
		Actors:    optional(md.Actors),
		Runtime:   optional(md.Runtime),
		Genre:     optional(md.Genre),
		Plot:      optional(md.Plot),
		Language:  optional(md.Language),
		Country:   optional(md.Country),
		Awards:    optional(md.Awards),
		Metascore: optional(md.Metascore),
		Rated:     optional(md.Rated),
		PosterURL: optional(md.PosterURL),
	}

	if text := strings.TrimSpace(md.YearText); text != "" {
		year, ok := ParseYearText(text)
		switch {
		case !ok:
			uc.log.Warnf("invalid year '%s' for external id %s", text, md.ExternalID)
		case year > uc.now().Year():
			uc.log.Warnf("year %d is in the future for external id %s", year, md.ExternalID)
		default:
			movie.Year = &year
		}
	}

	if raw := optional(md.Rating10); raw != nil {
		seed, err := SeedRating(*raw)
		if err != nil {
			uc.log.Warnf("invalid rating '%s' for external id %s: %v", *raw, md.ExternalID, err)
		} else {
			movie.SeedRating = &seed
		}
	}
	return movie
}

// ParseYearText extracts the leading year of a provider year string such as
// "2010", "2010–2012" or "2019-".
func ParseYearText(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, yearSeparators); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return year, true
}

// SeedRating converts a 0-10 provider rating into the 0-5 scale, rounded to one decimal.
func SeedRating(raw string) (float64, error) {
	r10, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	r5 := math.Round(r10/2*10) / 10
	if math.IsNaN(r5) || r5 < 0 || r5 > 5 {
		return 0, fmt.Errorf("converted rating %.1f out of range", r5)
	}
	return r5, nil
}

// optional trims s and maps blank or "N/A" provider values to nil.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	return &s
}

// Enrich fetches provider metadata for ref when it only carries an external id.
// Failures are logged and leave ref untouched.
func (uc *MovieUseCase) Enrich(ctx context.Context, ref *MovieRef) bool {
	if uc.metadata == nil || ref.Metadata != nil || strings.TrimSpace(ref.ExternalID) == "" {
		return false
	}
	md, err := uc.metadata.Lookup(ctx, &MetadataQuery{ExternalID: strings.TrimSpace(ref.ExternalID)})
	if err != nil {
		uc.log.Warnf("failed to fetch metadata for external id '%s': %v", ref.ExternalID, err)
		return false
	}
	ref.Metadata = md
	return true
}

// LookupMetadata queries the metadata provider directly.
func (uc *MovieUseCase) LookupMetadata(ctx context.Context, q *MetadataQuery) (*ExternalMovie, error) {
	if strings.TrimSpace(q.Title) == "" && strings.TrimSpace(q.ExternalID) == "" {
		return nil, fmt.Errorf("%w: title or external id required", ErrValidation)
	}
	if uc.metadata == nil {
		return nil, ErrMetadataUnavailable
	}
	return uc.metadata.Lookup(ctx, q)
}

// GetMovie retrieves a movie by its ID
func (uc *MovieUseCase) GetMovie(ctx context.Context, id string) (*Movie, error) {
	movie, err := uc.repo.GetMovie(ctx, id)
	if err != nil {
		return nil, storageErr("get movie", err)
	}
	return movie, nil
}

// GetMovieByExternalID retrieves a movie by its provider id
func (uc *MovieUseCase) GetMovieByExternalID(ctx context.Context, externalID string) (*Movie, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id is required", ErrValidation)
	}
	movie, err := uc.repo.GetMovieByExternalID(ctx, externalID)
	if err != nil {
		return nil, storageErr("get movie by external id", err)
	}
	return movie, nil
}

// ListMovies returns all movies ordered by title
func (uc *MovieUseCase) ListMovies(ctx context.Context) ([]*Movie, error) {
	movies, err := uc.repo.ListMovies(ctx)
	if err != nil {
		return nil, storageErr("list movies", err)
	}
	return movies, nil
}

// TopMovies returns the most listed movies, best rated first on ties.
func (uc *MovieUseCase) TopMovies(ctx context.Context, limit int) ([]*MovieStat, error) {
	if limit <= 0 {
		limit = 10
	}
	stats, err := uc.repo.TopMovies(ctx, limit)
	if err != nil {
		return nil, storageErr("top movies", err)
	}
	return stats, nil
}

// DeleteMovie removes a movie together with its links and comments.
func (uc *MovieUseCase) DeleteMovie(ctx context.Context, id string) error {
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := uc.repo.GetMovie(ctx, id); err != nil {
			return err
		}
		return uc.repo.DeleteMovie(ctx, id)
	})
	if err != nil {
		if !IsClientError(err) {
			uc.log.Errorf("failed to delete movie %s: %v", id, err)
		}
		return storageErr("delete movie", err)
	}
	uc.log.Infof("deleted movie %s globally", id)
	return nil
}
