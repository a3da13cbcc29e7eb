package server

import (
	"context"
	"net/http"

	"cinecrowd/internal/service"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// Operation names, matched by middleware.
const (
	OperationListUsers         = "/cinecrowd.v1.UserService/ListUsers"
	OperationRegister          = "/cinecrowd.v1.UserService/Register"
	OperationGetUser           = "/cinecrowd.v1.UserService/GetUser"
	OperationGetUserMovies     = "/cinecrowd.v1.UserService/GetUserMovies"
	OperationAddToList         = "/cinecrowd.v1.UserService/AddToList"
	OperationAddExistingToList = "/cinecrowd.v1.UserService/AddExistingToList"
	OperationUpdateRating      = "/cinecrowd.v1.UserService/UpdateRating"
	OperationRemoveFromList    = "/cinecrowd.v1.UserService/RemoveFromList"

	OperationListMovies     = "/cinecrowd.v1.MovieService/ListMovies"
	OperationTopMovies      = "/cinecrowd.v1.MovieService/TopMovies"
	OperationResolveMovie   = "/cinecrowd.v1.MovieService/ResolveMovie"
	OperationGetMovie       = "/cinecrowd.v1.MovieService/GetMovie"
	OperationDeleteMovie    = "/cinecrowd.v1.MovieService/DeleteMovie"
	OperationListComments   = "/cinecrowd.v1.MovieService/ListComments"
	OperationAddComment     = "/cinecrowd.v1.MovieService/AddComment"
	OperationLookupMetadata = "/cinecrowd.v1.MovieService/LookupMetadata"
)

// binder fills a request from the HTTP context.
type binder func(ctx khttp.Context, in interface{}) error

func bindVars(ctx khttp.Context, in interface{}) error  { return ctx.BindVars(in) }
func bindQuery(ctx khttp.Context, in interface{}) error { return ctx.BindQuery(in) }

func bindBody(ctx khttp.Context, in interface{}) error {
	if err := ctx.Bind(in); err != nil {
		return err
	}
	return ctx.BindVars(in)
}

// handle adapts a service method to a Kratos route handler running the
// server middleware chain under the given operation.
func handle[Req any, Reply any](operation string, bind binder, call func(context.Context, *Req) (*Reply, error)) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in Req
		if bind != nil {
			if err := bind(ctx, &in); err != nil {
				return err
			}
		}
		khttp.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out.(*Reply))
	}
}

// RegisterUserServiceHTTPServer mounts the user routes.
func RegisterUserServiceHTTPServer(s *khttp.Server, svc *service.UserService) {
	r := s.Route("/api")
	r.GET("/users", handle(OperationListUsers, nil, svc.ListUsers))
	r.POST("/users", handle(OperationRegister, bindBody, svc.Register))
	r.GET("/users/{user_id}", handle(OperationGetUser, bindVars, svc.GetUser))
	r.GET("/users/{user_id}/movies", handle(OperationGetUserMovies, bindVars, svc.GetUserMovies))
	r.POST("/users/{user_id}/movies", handle(OperationAddToList, bindBody, svc.AddToList))
	r.PUT("/users/{user_id}/movies/{movie_id}", handle(OperationUpdateRating, bindBody, svc.UpdateRating))
	r.POST("/users/{user_id}/movies/{movie_id}", handle(OperationAddExistingToList, bindVars, svc.AddExistingToList))
	r.DELETE("/users/{user_id}/movies/{movie_id}", handle(OperationRemoveFromList, bindVars, svc.RemoveFromList))
}

// RegisterMovieServiceHTTPServer mounts the movie, comment and metadata routes.
func RegisterMovieServiceHTTPServer(s *khttp.Server, svc *service.MovieService) {
	r := s.Route("/api")
	r.GET("/movies", handle(OperationListMovies, nil, svc.ListMovies))
	r.GET("/movies/top", handle(OperationTopMovies, bindQuery, svc.TopMovies))
	r.POST("/movies/resolve", handle(OperationResolveMovie, bindBody, svc.ResolveMovie))
	r.GET("/movies/{movie_id}", handle(OperationGetMovie, bindVars, svc.GetMovie))
	r.DELETE("/movies/{movie_id}", handle(OperationDeleteMovie, bindVars, svc.DeleteMovie))
	r.GET("/movies/{movie_id}/comments", handle(OperationListComments, bindVars, svc.ListComments))
	r.POST("/movies/{movie_id}/comments", handle(OperationAddComment, bindBody, svc.AddComment))
	r.GET("/metadata", handle(OperationLookupMetadata, bindQuery, svc.LookupMetadata))
}
