package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinecrowd/internal/biz"
	"cinecrowd/internal/cache"
	"cinecrowd/internal/conf"
	"cinecrowd/internal/data"
	"cinecrowd/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const adminToken = "s3cret"

func newTestServer(t *testing.T) *khttp.Server {
	t.Helper()
	srv, _ := newTestStack(t)
	return srv
}

// newTestStack also returns the storage behind the server for seeding rows
// the API cannot create.
func newTestStack(t *testing.T) (*khttp.Server, *data.Data) {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, cleanup, err := data.NewData(&conf.Data{Database: &conf.Data_Database{
		Driver: "sqlite",
		Source: fmt.Sprintf("file:srv_%s?mode=memory&cache=shared&_foreign_keys=on", name),
	}}, logger)
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}
	t.Cleanup(cleanup)
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	tx := data.NewTransaction(d)
	userRepo := data.NewUserRepo(d, logger)
	movieRepo := data.NewMovieRepo(d, logger)
	linkRepo := data.NewUserMovieRepo(d, logger)
	commentRepo := data.NewCommentRepo(d, logger)

	movieUC := biz.NewMovieUseCase(movieRepo, nil, tx, logger)
	ratingUC := biz.NewRatingUseCase(movieRepo, linkRepo, tx, logger)
	listUC := biz.NewListUseCase(userRepo, linkRepo, movieUC, ratingUC, tx, logger)
	commentUC := biz.NewCommentUseCase(userRepo, movieRepo, commentRepo, tx, logger)
	userUC := biz.NewUserUseCase(userRepo, logger)

	c := cache.NewMemory(time.Minute, nil)
	users := service.NewUserService(userUC, listUC, c, logger)
	movies := service.NewMovieService(movieUC, commentUC, c, logger)
	return NewHTTPServer(&conf.Server{}, &conf.Auth{Token: adminToken}, users, movies, logger), d
}

type call struct {
	method string
	path   string
	body   string
	header map[string]string
}

func do(t *testing.T, srv http.Handler, c call, out interface{}) int {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", c.method, c.path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

type errorBody struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func register(t *testing.T, srv http.Handler, name string) string {
	t.Helper()
	var reply service.RegisterReply
	if code := do(t, srv, call{method: "POST", path: "/api/users", body: `{"name":"` + name + `"}`}, &reply); code != http.StatusCreated {
		t.Fatalf("register %s: status %d", name, code)
	}
	return reply.User.ID
}

const inceptionBody = `{"external_id":"tt1375666","metadata":{"external_id":"tt1375666","title":"Inception","year":"2010","director":"Christopher Nolan","rating10":"8.8"}}`

func TestUserListFlow(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "  Alice ")
	bob := register(t, srv, "bob")

	var added service.AddToListReply
	body := `{"external_id":"tt1375666","rating":4.0,"metadata":{"external_id":"tt1375666","title":"Inception","year":"2010","rating10":"8.8"}}`
	code := do(t, srv, call{method: "POST", path: "/api/users/" + alice + "/movies", body: body}, &added)
	if code != http.StatusCreated {
		t.Fatalf("add to list: status %d", code)
	}
	movieID := added.Movie.ID
	if added.Movie.CommunityRating == nil || *added.Movie.CommunityRating != 4.2 || added.Movie.CommunityRatingCount != 2 {
		t.Errorf("community after first rating = %v/%d, want 4.2/2", added.Movie.CommunityRating, added.Movie.CommunityRatingCount)
	}

	// Warm the cache, then make sure a write invalidates it.
	var detail service.GetMovieReply
	if code := do(t, srv, call{method: "GET", path: "/api/movies/" + movieID}, &detail); code != http.StatusOK {
		t.Fatalf("get movie: status %d", code)
	}

	if code := do(t, srv, call{method: "POST", path: "/api/users/" + bob + "/movies/" + movieID}, nil); code != http.StatusOK {
		t.Fatalf("add existing: status %d", code)
	}
	var rated service.UserMovieReply
	code = do(t, srv, call{method: "PUT", path: "/api/users/" + bob + "/movies/" + movieID, body: `{"rating":1.0}`}, &rated)
	if code != http.StatusOK {
		t.Fatalf("update rating: status %d", code)
	}
	if rated.UserRating == nil || *rated.UserRating != 1.0 {
		t.Errorf("user rating = %v", rated.UserRating)
	}

	detail = service.GetMovieReply{}
	do(t, srv, call{method: "GET", path: "/api/movies/" + movieID}, &detail)
	// (4.4 + 4.0 + 1.0) / 3
	if detail.Movie.CommunityRating == nil || *detail.Movie.CommunityRating != 3.13 || detail.Movie.CommunityRatingCount != 3 {
		t.Errorf("community = %v/%d, want 3.13/3", detail.Movie.CommunityRating, detail.Movie.CommunityRatingCount)
	}

	var user service.GetUserReply
	do(t, srv, call{method: "GET", path: "/api/users/" + alice}, &user)
	if user.User.Name != "alice" || len(user.Movies) != 1 || user.Movies[0].Movie.ID != movieID {
		t.Errorf("user detail = %+v", user)
	}

	var top service.TopMoviesReply
	do(t, srv, call{method: "GET", path: "/api/movies/top?limit=5"}, &top)
	if len(top.Movies) != 1 || top.Movies[0].UserCount != 2 {
		t.Errorf("top = %+v", top)
	}

	if code := do(t, srv, call{method: "DELETE", path: "/api/users/" + bob + "/movies/" + movieID}, nil); code != http.StatusOK {
		t.Fatalf("remove: status %d", code)
	}
	detail = service.GetMovieReply{}
	do(t, srv, call{method: "GET", path: "/api/movies/" + movieID}, &detail)
	if *detail.Movie.CommunityRating != 4.2 || detail.Movie.CommunityRatingCount != 2 {
		t.Errorf("community after removal = %v/%d", *detail.Movie.CommunityRating, detail.Movie.CommunityRatingCount)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice")

	tests := []struct {
		name   string
		call   call
		status int
		reason string
	}{
		{"duplicate user", call{method: "POST", path: "/api/users", body: `{"name":"ALICE"}`}, http.StatusConflict, service.ReasonConflict},
		{"blank user", call{method: "POST", path: "/api/users", body: `{"name":"   "}`}, http.StatusUnprocessableEntity, service.ReasonInvalidInput},
		{"unknown user", call{method: "GET", path: "/api/users/nobody"}, http.StatusNotFound, service.ReasonNotFound},
		{"rating out of range", call{method: "POST", path: "/api/users/" + alice + "/movies", body: `{"title":"Heat","rating":6}`}, http.StatusUnprocessableEntity, service.ReasonInvalidInput},
		{"insufficient data", call{method: "POST", path: "/api/users/" + alice + "/movies", body: `{"title":"Heat","year":1995}`}, http.StatusUnprocessableEntity, service.ReasonInvalidInput},
		{"unknown movie", call{method: "GET", path: "/api/movies/missing"}, http.StatusNotFound, service.ReasonNotFound},
		{"metadata unconfigured", call{method: "GET", path: "/api/metadata?title=Heat"}, http.StatusBadGateway, service.ReasonUpstream},
		{"oversized poster url", call{method: "POST", path: "/api/users/" + alice + "/movies", body: `{"external_id":"tt0000002","metadata":{"external_id":"tt0000002","title":"Long","poster_url":"` + strings.Repeat("x", 300) + `"}}`}, http.StatusUnprocessableEntity, service.ReasonInvalidInput},
		{"rating without link", call{method: "PUT", path: "/api/users/" + alice + "/movies/missing", body: `{"rating":3}`}, http.StatusNotFound, service.ReasonNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			if code := do(t, srv, tt.call, &e); code != tt.status {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.status, e)
			}
			if e.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", e.Reason, tt.reason)
			}
		})
	}
}

func TestResolveRequiresAdminToken(t *testing.T) {
	srv := newTestServer(t)

	if code := do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: inceptionBody}, nil); code != http.StatusUnauthorized {
		t.Fatalf("without token: status %d", code)
	}
	bad := map[string]string{"Authorization": "Bearer nope"}
	if code := do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: inceptionBody, header: bad}, nil); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d", code)
	}

	auth := map[string]string{"Authorization": "Bearer " + adminToken}
	var first service.ResolveMovieReply
	if code := do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: inceptionBody, header: auth}, &first); code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	if !first.Created || first.Movie.SeedRating == nil || *first.Movie.SeedRating != 4.4 {
		t.Errorf("first = %+v", first)
	}

	var second service.ResolveMovieReply
	if code := do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: inceptionBody, header: auth}, &second); code != http.StatusOK {
		t.Fatalf("resolve existing: status %d", code)
	}
	if second.Created || second.Movie.ID != first.Movie.ID {
		t.Errorf("second = %+v", second)
	}
}

func TestResolveBackfillRefreshesCachedMovie(t *testing.T) {
	srv, d := newTestStack(t)
	year := 1995
	heat := &biz.Movie{ID: "m-heat", Title: "Heat", Year: &year}
	if err := data.NewMovieRepo(d, log.NewStdLogger(io.Discard)).CreateMovie(context.Background(), heat); err != nil {
		t.Fatalf("CreateMovie: %v", err)
	}

	var before service.GetMovieReply
	if code := do(t, srv, call{method: "GET", path: "/api/movies/m-heat"}, &before); code != http.StatusOK {
		t.Fatalf("get: status %d", code)
	}
	if before.Movie.ExternalID != nil {
		t.Fatalf("external id = %q before resolve", *before.Movie.ExternalID)
	}

	auth := map[string]string{"Authorization": "Bearer " + adminToken}
	var resolved service.ResolveMovieReply
	body := `{"external_id":"tt0113277","title":"heat","year":1995}`
	if code := do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: body, header: auth}, &resolved); code != http.StatusOK {
		t.Fatalf("resolve: status %d", code)
	}
	if resolved.Created || resolved.Movie.ID != "m-heat" {
		t.Fatalf("resolved = %+v", resolved)
	}

	var after service.GetMovieReply
	do(t, srv, call{method: "GET", path: "/api/movies/m-heat"}, &after)
	if after.Movie.ExternalID == nil || *after.Movie.ExternalID != "tt0113277" {
		t.Errorf("cached movie still has external id %v", after.Movie.ExternalID)
	}
}

func TestCommentsAndDelete(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice")
	auth := map[string]string{"Authorization": "Bearer " + adminToken}

	var resolved service.ResolveMovieReply
	do(t, srv, call{method: "POST", path: "/api/movies/resolve", body: inceptionBody, header: auth}, &resolved)
	movieID := resolved.Movie.ID

	path := "/api/movies/" + movieID + "/comments"
	if code := do(t, srv, call{method: "POST", path: path, body: `{"text":"dreamy"}`}, nil); code != http.StatusUnauthorized {
		t.Fatalf("comment without user: status %d", code)
	}
	var added service.AddCommentReply
	code := do(t, srv, call{method: "POST", path: path, body: `{"text":"  dreamy  "}`, header: map[string]string{"X-User-Id": alice}}, &added)
	if code != http.StatusCreated {
		t.Fatalf("comment: status %d", code)
	}
	if added.Comment.Text != "dreamy" || added.Comment.UserName != "alice" {
		t.Errorf("comment = %+v", added.Comment)
	}

	var list service.ListCommentsReply
	do(t, srv, call{method: "GET", path: path}, &list)
	if len(list.Comments) != 1 {
		t.Fatalf("comments = %d", len(list.Comments))
	}

	if code := do(t, srv, call{method: "DELETE", path: "/api/movies/" + movieID}, nil); code != http.StatusUnauthorized {
		t.Fatalf("delete without token: status %d", code)
	}
	if code := do(t, srv, call{method: "DELETE", path: "/api/movies/" + movieID, header: auth}, nil); code != http.StatusOK {
		t.Fatalf("delete: status %d", code)
	}
	if code := do(t, srv, call{method: "GET", path: path}, nil); code != http.StatusNotFound {
		t.Errorf("comments of deleted movie: status %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	for _, p := range []string{"/healthz", "/metrics"} {
		if code := do(t, srv, call{method: "GET", path: p}, nil); code != http.StatusOK {
			t.Errorf("%s: status %d", p, code)
		}
	}
}
