package server

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"cinecrowd/internal/service"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinecrowd_requests_total",
			Help: "Total number of handled requests by operation and status code",
		},
		[]string{"kind", "operation", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinecrowd_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "operation"},
	)
)

// adminOperations require the admin bearer token.
var adminOperations = map[string]bool{
	OperationDeleteMovie:  true,
	OperationResolveMovie: true,
}

// userOperations act on behalf of the user named in X-User-Id.
var userOperations = map[string]bool{
	OperationAddComment: true,
}

// AuthMiddleware validates the Bearer token for admin operations
func AuthMiddleware(token string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "missing transport info")
			}
			if !adminOperations[tr.Operation()] {
				return handler(ctx, req)
			}

			authHeader := tr.RequestHeader().Get("Authorization")
			if authHeader == "" {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "missing Authorization header")
			}

			// Check Bearer token format
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "invalid Authorization header format")
			}

			if token == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "invalid token")
			}

			return handler(ctx, req)
		}
	}
}

// UserIDMiddleware extracts the X-User-Id header for operations acting as a user
func UserIDMiddleware() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok || !userOperations[tr.Operation()] {
				return handler(ctx, req)
			}

			userID := strings.TrimSpace(tr.RequestHeader().Get("X-User-Id"))
			if userID == "" {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "missing X-User-Id header")
			}

			return handler(service.WithUserID(ctx, userID), req)
		}
	}
}

// Validator checks request structs against their validate tags.
func Validator(v *validator.Validate) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if req != nil {
				if err := v.StructCtx(ctx, req); err != nil {
					if _, ok := err.(*validator.InvalidValidationError); !ok {
						return nil, service.ValidationError(err)
					}
				}
			}
			return handler(ctx, req)
		}
	}
}

// Metrics records request counts and latencies per operation.
func Metrics() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			kind, operation := "unknown", "unknown"
			if tr, ok := transport.FromServerContext(ctx); ok {
				kind, operation = tr.Kind().String(), tr.Operation()
			}
			start := time.Now()
			reply, err := handler(ctx, req)

			code := 200
			if err != nil {
				code = int(errors.FromError(err).Code)
			}
			requestsTotal.WithLabelValues(kind, operation, codeLabel(code)).Inc()
			requestDuration.WithLabelValues(kind, operation).Observe(time.Since(start).Seconds())
			return reply, err
		}
	}
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
