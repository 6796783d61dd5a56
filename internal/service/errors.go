package service

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs a user and
	// the request carries none.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrMovieNotFound is returned when the referenced movie is not in the
	// catalog or the provider has no such title.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrInvalidRating is returned for a rating other than liked or disliked.
	ErrInvalidRating = errors.New("rating must be liked or disliked")
)
