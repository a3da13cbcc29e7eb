package biz

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// memStore is an in-memory implementation of every biz repository.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*User
	movies   map[string]*Movie
	links    map[string]*UserMovie
	comments []*Comment

	// failAggregate, when set, is returned by UpdateAggregate.
	failAggregate error
	// createDelay stalls CreateMovie like a slow database; it honours ctx.
	createDelay time.Duration
	// createStarted, when set, is closed on the first CreateMovie call.
	createStarted chan struct{}
	startOnce     sync.Once
	// lockedReads counts GetMovieForUpdate calls.
	lockedReads atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*User{},
		movies: map[string]*Movie{},
		links:  map[string]*UserMovie{},
	}
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func copyMovie(m *Movie) *Movie {
	c := *m
	return &c
}

func (s *memStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Name, u.Name) {
			return ErrUserExists
		}
	}
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memStore) GetUserByName(_ context.Context, name string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Name, name) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memStore) ListUsers(_ context.Context) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		for _, l := range s.links {
			if l.UserID == u.ID {
				c.MovieCount++
			}
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) CreateMovie(ctx context.Context, m *Movie) error {
	if s.createStarted != nil {
		s.startOnce.Do(func() { close(s.createStarted) })
	}
	if s.createDelay > 0 {
		select {
		case <-time.After(s.createDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ExternalID != nil {
		for _, existing := range s.movies {
			if existing.ExternalID != nil && *existing.ExternalID == *m.ExternalID {
				return ErrDuplicateExternalID
			}
		}
	}
	s.movies[m.ID] = copyMovie(m)
	return nil
}

func (s *memStore) GetMovie(_ context.Context, id string) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return copyMovie(m), nil
}

func (s *memStore) GetMovieForUpdate(ctx context.Context, id string) (*Movie, error) {
	s.lockedReads.Add(1)
	return s.GetMovie(ctx, id)
}

func (s *memStore) GetMovieByExternalID(_ context.Context, externalID string) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			return copyMovie(m), nil
		}
	}
	return nil, ErrMovieNotFound
}

func (s *memStore) FindByTitleYear(_ context.Context, title string, year int) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if strings.EqualFold(m.Title, title) && m.Year != nil && *m.Year == year {
			return copyMovie(m), nil
		}
	}
	return nil, ErrMovieNotFound
}

func (s *memStore) ListMovies(_ context.Context) ([]*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, copyMovie(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *memStore) TopMovies(_ context.Context, limit int) ([]*MovieStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, l := range s.links {
		counts[l.MovieID]++
	}
	out := make([]*MovieStat, 0, len(counts))
	for id, n := range counts {
		out = append(out, &MovieStat{Movie: copyMovie(s.movies[id]), UserCount: n})
	}
	rating := func(m *Movie) float64 {
		if m.CommunityRating == nil {
			return -1
		}
		return *m.CommunityRating
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserCount != out[j].UserCount {
			return out[i].UserCount > out[j].UserCount
		}
		return rating(out[i].Movie) > rating(out[j].Movie)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) SetExternalID(_ context.Context, id, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return ErrMovieNotFound
	}
	m.ExternalID = &externalID
	return nil
}

func (s *memStore) UpdateAggregate(_ context.Context, id string, rating *float64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAggregate != nil {
		return s.failAggregate
	}
	m, ok := s.movies[id]
	if !ok {
		return ErrMovieNotFound
	}
	m.CommunityRating = rating
	m.CommunityRatingCount = count
	return nil
}

func (s *memStore) DeleteMovie(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.movies, id)
	for lid, l := range s.links {
		if l.MovieID == id {
			delete(s.links, lid)
		}
	}
	kept := s.comments[:0]
	for _, c := range s.comments {
		if c.MovieID != id {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	return nil
}

func (s *memStore) GetLink(_ context.Context, userID, movieID string) (*UserMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.UserID == userID && l.MovieID == movieID {
			c := *l
			return &c, nil
		}
	}
	return nil, ErrLinkNotFound
}

func (s *memStore) CreateLink(_ context.Context, link *UserMovie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *link
	s.links[link.ID] = &c
	return nil
}

func (s *memStore) UpdateLinkRating(_ context.Context, id string, rating *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return ErrLinkNotFound
	}
	l.UserRating = rating
	return nil
}

func (s *memStore) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, id)
	return nil
}

func (s *memStore) ListUserLinks(_ context.Context, userID string) ([]*UserMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*UserMovie
	for _, l := range s.links {
		if l.UserID == userID {
			c := *l
			c.Movie = copyMovie(s.movies[l.MovieID])
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MovieID < out[j].MovieID })
	return out, nil
}

func (s *memStore) MovieRatings(_ context.Context, movieID string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float64
	for _, l := range s.links {
		if l.MovieID == movieID && l.UserRating != nil {
			out = append(out, *l.UserRating)
		}
	}
	return out, nil
}

func (s *memStore) CreateComment(_ context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := *c
	s.comments = append(s.comments, &cc)
	return nil
}

func (s *memStore) ListComments(_ context.Context, movieID string) ([]*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Comment
	for _, c := range s.comments {
		if c.MovieID == movieID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type stubMetadata struct {
	records map[string]*ExternalMovie
	calls   int
}

func (m *stubMetadata) Lookup(_ context.Context, q *MetadataQuery) (*ExternalMovie, error) {
	m.calls++
	if r, ok := m.records[q.ExternalID]; ok {
		c := *r
		return &c, nil
	}
	return nil, ErrMetadataNotFound
}

var fixedNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memStore
	metadata *stubMetadata
	users    *UserUseCase
	movies   *MovieUseCase
	ratings  *RatingUseCase
	lists    *ListUseCase
	comments *CommentUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	store := newMemStore()
	md := &stubMetadata{records: map[string]*ExternalMovie{}}
	now := func() time.Time { return fixedNow }

	env := &testEnv{store: store, metadata: md}
	env.users = NewUserUseCase(store, logger)
	env.users.now = now
	env.movies = NewMovieUseCase(store, md, store, logger)
	env.movies.now = now
	env.ratings = NewRatingUseCase(store, store, store, logger)
	env.lists = NewListUseCase(store, store, env.movies, env.ratings, store, logger)
	env.lists.now = now
	env.comments = NewCommentUseCase(store, store, store, store, logger)
	env.comments.now = now
	return env
}

func (e *testEnv) mustUser(t *testing.T, name string) *User {
	t.Helper()
	u, err := e.users.Register(context.Background(), name)
	if err != nil {
		t.Fatalf("register %q: %v", name, err)
	}
	return u
}

func (e *testEnv) movieCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.movies)
}

func ptr[T any](v T) *T { return &v }
