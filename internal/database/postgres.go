package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"next-watch/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrations is the ordered, idempotent schema for the catalog, preference
// and watch-list tables.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id SERIAL PRIMARY KEY,
		tmdb_id INTEGER UNIQUE NOT NULL,
		type VARCHAR(10) NOT NULL CHECK (type IN ('movie', 'show')),
		title VARCHAR(500) NOT NULL,
		overview TEXT NOT NULL DEFAULT '',
		poster_path VARCHAR(500),
		backdrop_path VARCHAR(500),
		genres TEXT[] NOT NULL DEFAULT '{}',
		vote_average NUMERIC(3,1) CHECK (vote_average BETWEEN 0 AND 10),
		vote_count INTEGER CHECK (vote_count >= 0),
		release_date DATE,
		runtime INTEGER,
		status VARCHAR(50),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		rating VARCHAR(10) NOT NULL CHECK (rating IN ('liked', 'disliked')),
		watched BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS watch_lists (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, movie_id)
	)`,
	// Indexes for common query patterns
	`CREATE INDEX IF NOT EXISTS idx_movies_type ON movies(type)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_vote_average ON movies(vote_average)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies(release_date)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_type_vote_average ON movies(type, vote_average)`,
	`CREATE INDEX IF NOT EXISTS idx_user_preferences_user_rating ON user_preferences(user_id, rating)`,
	`CREATE INDEX IF NOT EXISTS idx_watch_lists_user_id ON watch_lists(user_id)`,
}

// Migrate applies Migrations in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range Migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
