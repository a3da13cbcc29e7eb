package service

import (
	"context"
	"errors"
	"strings"

	"cinecrowd/internal/biz"
	"cinecrowd/internal/cache"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewUserService, NewMovieService)

const (
	ReasonInvalidInput = "INVALID_INPUT"
	ReasonNotFound     = "NOT_FOUND"
	ReasonConflict     = "CONFLICT"
	ReasonUpstream     = "UPSTREAM_UNAVAILABLE"
	ReasonInternal     = "INTERNAL"
	ReasonUnauthorized = "UNAUTHORIZED"
)

// toStatus maps the biz error taxonomy onto Kratos errors. Storage details
// never reach the client.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return kerrors.New(422, ReasonInvalidInput, validationMessage(ve))
	case errors.Is(err, biz.ErrValidation):
		return kerrors.New(422, ReasonInvalidInput, err.Error())
	case errors.Is(err, biz.ErrNotFound):
		return kerrors.NotFound(ReasonNotFound, err.Error())
	case errors.Is(err, biz.ErrConflict):
		return kerrors.Conflict(ReasonConflict, err.Error())
	case errors.Is(err, biz.ErrUpstream):
		return kerrors.New(502, ReasonUpstream, "metadata provider unavailable")
	default:
		return kerrors.InternalServer(ReasonInternal, "could not complete the request")
	}
}

// ValidationError converts validator output into the client error shape.
func ValidationError(err error) error {
	return toStatus(err)
}

func validationMessage(ve validator.ValidationErrors) string {
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

// cached returns the reply stored under key or loads, stores and returns it.
func cached[T any](ctx context.Context, c cache.Cache, key string, load func() (*T, error)) (*T, error) {
	if data, ok := c.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(v); err == nil {
		c.Set(ctx, key, data)
	}
	return v, nil
}

type userIDKey struct{}

// WithUserID stores the acting user's id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the acting user's id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
