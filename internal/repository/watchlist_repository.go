package repository

import (
	"context"
	"database/sql"
	"fmt"

	"next-watch/internal/models"
)

// WatchListRepository stores saved-for-later movies.
type WatchListRepository struct {
	db *sql.DB
}

// NewWatchListRepository creates a new WatchListRepository.
func NewWatchListRepository(db *sql.DB) *WatchListRepository {
	return &WatchListRepository{db: db}
}

// Add saves a movie to the user's watch list. Adding a saved movie again
// is a no-op.
func (r *WatchListRepository) Add(ctx context.Context, userID, movieID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watch_lists (user_id, movie_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, movie_id) DO NOTHING
	`, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to add watch list entry: %w", err)
	}
	return nil
}

// Remove deletes a movie from the user's watch list if present.
func (r *WatchListRepository) Remove(ctx context.Context, userID, movieID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM watch_lists WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to remove watch list entry: %w", err)
	}
	return nil
}

// List returns the user's saved movies, newest first.
func (r *WatchListRepository) List(ctx context.Context, userID int) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+movieColumns+`
		FROM watch_lists w
		INNER JOIN movies m ON m.id = w.movie_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, w.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch list: %w", err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch list row: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// MovieIDs returns the ids of every movie on the user's watch list.
func (r *WatchListRepository) MovieIDs(ctx context.Context, userID int) ([]int, error) {
	return queryIDs(ctx, r.db, `
		SELECT movie_id FROM watch_lists
		WHERE user_id = $1
		ORDER BY movie_id
	`, userID)
}
