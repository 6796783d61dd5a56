package repository

import (
	"context"
	"database/sql"
	"fmt"

	"next-watch/internal/models"
)

// PreferenceRepository stores each user's liked/disliked ratings.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Upsert creates or replaces the user's rating for a movie. Recording a
// rating always marks the movie as watched.
func (r *PreferenceRepository) Upsert(ctx context.Context, userID, movieID int, rating models.Rating) (*models.Preference, error) {
	var pref models.Preference
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_preferences (user_id, movie_id, rating, watched, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			watched = TRUE,
			updated_at = NOW()
		RETURNING id, user_id, movie_id, rating, watched, created_at, updated_at
	`, userID, movieID, rating).Scan(
		&pref.ID, &pref.UserID, &pref.MovieID, &pref.Rating,
		&pref.Watched, &pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert preference: %w", err)
	}
	return &pref, nil
}

// ListRated returns every movie the user has rated, most recently rated
// first.
func (r *PreferenceRepository) ListRated(ctx context.Context, userID int) ([]models.RatedMovie, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+movieColumns+`, p.rating, p.updated_at
		FROM user_preferences p
		INNER JOIN movies m ON m.id = p.movie_id
		WHERE p.user_id = $1
		ORDER BY p.updated_at DESC, p.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	rated := make([]models.RatedMovie, 0)
	for rows.Next() {
		var rm models.RatedMovie
		m, err := scanMovie(rows, &rm.UserRating, &rm.RatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		rm.Movie = m
		rated = append(rated, rm)
	}
	return rated, rows.Err()
}

// MovieIDs returns the ids of every movie the user has rated.
func (r *PreferenceRepository) MovieIDs(ctx context.Context, userID int) ([]int, error) {
	return queryIDs(ctx, r.db, `
		SELECT movie_id FROM user_preferences
		WHERE user_id = $1
		ORDER BY movie_id
	`, userID)
}

func queryIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]int, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
