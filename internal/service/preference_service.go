package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"next-watch/internal/models"
)

// PreferenceStore persists liked/disliked ratings.
type PreferenceStore interface {
	Upsert(ctx context.Context, userID, movieID int, rating models.Rating) (*models.Preference, error)
	ListRated(ctx context.Context, userID int) ([]models.RatedMovie, error)
	MovieIDs(ctx context.Context, userID int) ([]int, error)
}

// MovieChecker reports whether a catalog movie exists.
type MovieChecker interface {
	Exists(ctx context.Context, id int) (bool, error)
}

// PreferenceService records ratings and lists watched history.
type PreferenceService struct {
	prefs  PreferenceStore
	movies MovieChecker
	cache  cache
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(prefs PreferenceStore, movies MovieChecker, rdb *redis.Client) *PreferenceService {
	return &PreferenceService{
		prefs:  prefs,
		movies: movies,
		cache:  newCache("recommendations", rdb),
	}
}

// RecordPreference stores the user's rating for a movie, replacing any
// earlier rating, and drops the user's cached recommendations.
func (s *PreferenceService) RecordPreference(ctx context.Context, user *models.User, movieID int, rating models.Rating) (*models.Preference, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !rating.Valid() {
		return nil, ErrInvalidRating
	}
	if err := requireMovie(ctx, s.movies, movieID); err != nil {
		return nil, err
	}

	pref, err := s.prefs.Upsert(ctx, user.ID, movieID, rating)
	if err != nil {
		return nil, fmt.Errorf("failed to record preference: %w", err)
	}

	slog.Info("preference recorded", "user_id", user.ID, "movie_id", movieID, "rating", rating)
	s.cache.invalidate(ctx, recommendationCachePattern(user))
	return pref, nil
}

// Watched returns every movie the user has rated with that rating, most
// recently rated first.
func (s *PreferenceService) Watched(ctx context.Context, user *models.User) ([]models.RatedMovie, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	rated, err := s.prefs.ListRated(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched movies: %w", err)
	}
	return rated, nil
}

func requireMovie(ctx context.Context, movies MovieChecker, movieID int) error {
	if movieID <= 0 {
		return ErrMovieNotFound
	}
	ok, err := movies.Exists(ctx, movieID)
	if err != nil {
		return fmt.Errorf("failed to look up movie: %w", err)
	}
	if !ok {
		return ErrMovieNotFound
	}
	return nil
}
