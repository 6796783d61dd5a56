package service

import (
	"context"
	"fmt"

	"next-watch/internal/models"
)

// WatchListStore persists saved-for-later movies.
type WatchListStore interface {
	Add(ctx context.Context, userID, movieID int) error
	Remove(ctx context.Context, userID, movieID int) error
	List(ctx context.Context, userID int) ([]models.Movie, error)
	MovieIDs(ctx context.Context, userID int) ([]int, error)
}

// WatchListService manages each user's watch list.
type WatchListService struct {
	entries WatchListStore
	movies  MovieChecker
}

// NewWatchListService creates a new WatchListService.
func NewWatchListService(entries WatchListStore, movies MovieChecker) *WatchListService {
	return &WatchListService{entries: entries, movies: movies}
}

// Add saves a movie to the user's watch list. Saving it twice is a no-op.
func (s *WatchListService) Add(ctx context.Context, user *models.User, movieID int) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if err := requireMovie(ctx, s.movies, movieID); err != nil {
		return err
	}
	if err := s.entries.Add(ctx, user.ID, movieID); err != nil {
		return fmt.Errorf("failed to add to watch list: %w", err)
	}
	return nil
}

// Remove drops a movie from the user's watch list. Removing a movie that
// is not saved succeeds.
func (s *WatchListService) Remove(ctx context.Context, user *models.User, movieID int) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if err := requireMovie(ctx, s.movies, movieID); err != nil {
		return err
	}
	if err := s.entries.Remove(ctx, user.ID, movieID); err != nil {
		return fmt.Errorf("failed to remove from watch list: %w", err)
	}
	return nil
}

// List returns the user's saved movies, newest first.
func (s *WatchListService) List(ctx context.Context, user *models.User) ([]models.Movie, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	movies, err := s.entries.List(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch list: %w", err)
	}
	return movies, nil
}
