package server

import (
	"net/http"

	"cinecrowd/internal/conf"
	"cinecrowd/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// responseEncoder lets replies pick their status code (201 for creations).
func responseEncoder(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if sr, ok := v.(service.StatusResponse); ok {
		w.WriteHeader(sr.HTTPStatus())
	}
	return khttp.DefaultResponseEncoder(w, r, v)
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, auth *conf.Auth, users *service.UserService, movies *service.MovieService, logger log.Logger) *khttp.Server {
	token := ""
	if auth != nil {
		token = auth.Token
	}
	var opts = []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			Metrics(),
			logging.Server(logger),
			AuthMiddleware(token),
			UserIDMiddleware(),
			Validator(validator.New()),
		),
		khttp.ResponseEncoder(responseEncoder),
	}
	if c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, khttp.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, khttp.Address(c.Http.Addr))
		}
		if c.Http.Timeout != nil {
			opts = append(opts, khttp.Timeout(c.Http.Timeout.AsDuration()))
		}
	}
	srv := khttp.NewServer(opts...)
	srv.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv.Handle("/metrics", promhttp.Handler())
	RegisterUserServiceHTTPServer(srv, users)
	RegisterMovieServiceHTTPServer(srv, movies)
	return srv
}
