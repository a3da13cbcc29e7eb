package biz

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error leaving biz matches exactly one of these with errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)

// Custom errors
var (
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrMovieNotFound = fmt.Errorf("movie %w", ErrNotFound)
	ErrLinkNotFound  = fmt.Errorf("movie is not in the user's list: %w", ErrNotFound)

	ErrUserExists          = fmt.Errorf("%w: user name already taken", ErrConflict)
	ErrDuplicateExternalID = fmt.Errorf("%w: external id already in use", ErrConflict)

	ErrInsufficientData = fmt.Errorf("%w: insufficient data to resolve or create", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyTitle       = fmt.Errorf("%w: title is required", ErrValidation)
	ErrEmptyComment     = fmt.Errorf("%w: comment text is required", ErrValidation)
	ErrRatingRange      = fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	ErrFutureYear       = fmt.Errorf("%w: year is in the future", ErrValidation)
)

// ErrUpstream marks failures of the external metadata provider.
var (
	ErrUpstream            = errors.New("upstream failure")
	ErrMetadataUnavailable = fmt.Errorf("%w: metadata provider not configured", ErrUpstream)
	ErrMetadataNotFound    = fmt.Errorf("metadata %w", ErrNotFound)
)

// IsClientError reports whether err can be corrected by the caller.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

func storageErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrStorage) || IsClientError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
