package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"next-watch/internal/models"
)

// movieColumns is the select list shared by every query returning movies.
// It expects the movies table aliased as m.
const movieColumns = `m.id, m.tmdb_id, m.type, m.title, m.overview,
	m.poster_path, m.backdrop_path, m.genres, m.vote_average, m.vote_count,
	TO_CHAR(m.release_date, 'YYYY-MM-DD'), m.runtime, m.status,
	m.created_at, m.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// movieDest returns the scan targets matching movieColumns.
func movieDest(m *models.Movie) []any {
	return []any{
		&m.ID, &m.TMDBID, &m.Type, &m.Title, &m.Overview,
		&m.PosterPath, &m.BackdropPath, pq.Array(&m.Genres), &m.VoteAverage, &m.VoteCount,
		&m.ReleaseDate, &m.Runtime, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	}
}

// finishMovie fills derived fields after a scan.
func finishMovie(m *models.Movie) {
	if m.Genres == nil {
		m.Genres = []string{}
	}
	m.FillImageURLs()
}

func scanMovie(row scanner, extra ...any) (models.Movie, error) {
	var m models.Movie
	if err := row.Scan(append(movieDest(&m), extra...)...); err != nil {
		return m, err
	}
	finishMovie(&m)
	return m, nil
}

// MovieRepository handles database operations for the catalog.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Upsert inserts or updates a movie keyed by its TMDB id. Genres are
// normalized before the write. On success m carries the stored id and
// timestamps.
func (r *MovieRepository) Upsert(ctx context.Context, m *models.Movie) error {
	m.Genres = models.NormalizeGenres(m.Genres)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO movies (tmdb_id, type, title, overview, poster_path, backdrop_path,
			genres, vote_average, vote_count, release_date, runtime, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11, $12, NOW())
		ON CONFLICT (tmdb_id) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			overview = EXCLUDED.overview,
			poster_path = EXCLUDED.poster_path,
			backdrop_path = EXCLUDED.backdrop_path,
			genres = EXCLUDED.genres,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			release_date = EXCLUDED.release_date,
			runtime = COALESCE(EXCLUDED.runtime, movies.runtime),
			status = COALESCE(EXCLUDED.status, movies.status),
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, m.TMDBID, m.Type, m.Title, m.Overview, m.PosterPath, m.BackdropPath,
		pq.Array(m.Genres), m.VoteAverage, m.VoteCount, m.ReleaseDate, m.Runtime, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert movie %d: %w", m.TMDBID, err)
	}
	m.FillImageURLs()
	return nil
}

// GetByID returns a movie by internal id. It returns sql.ErrNoRows when
// the movie does not exist.
func (r *MovieRepository) GetByID(ctx context.Context, id int) (*models.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = $1`, id)
	m, err := scanMovie(row)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Exists reports whether a movie with the given internal id is stored.
func (r *MovieRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM movies WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check movie %d: %w", id, err)
	}
	return exists, nil
}

// List returns a paginated catalog listing matching the given filters.
// params must already be validated.
func (r *MovieRepository) List(ctx context.Context, params models.MovieListParams) (*models.MovieListResponse, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if params.Type != "" {
		conditions = append(conditions, fmt.Sprintf("m.type = $%d", argIdx))
		args = append(args, params.Type)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	// Validate sort column to prevent SQL injection
	sortColumn := "vote_average"
	switch params.SortBy {
	case "release_date":
		sortColumn = "release_date"
	case "title":
		sortColumn = "title"
	}
	orderDir := "DESC"
	if params.Order == "asc" {
		orderDir = "ASC"
	}

	var totalResults int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM movies m WHERE %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalResults); err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	totalPages := 0
	if totalResults > 0 {
		totalPages = (totalResults + params.PageSize - 1) / params.PageSize
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM movies m
		WHERE %s
		ORDER BY m.%s %s NULLS LAST, m.id ASC
		LIMIT $%d OFFSET $%d`,
		movieColumns, whereClause, sortColumn, orderDir, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	movies, err := r.query(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}

	return &models.MovieListResponse{
		Page:         params.Page,
		PageSize:     params.PageSize,
		TotalPages:   totalPages,
		TotalResults: totalResults,
		Data:         movies,
	}, nil
}

// RankQuery selects a popularity-ordered catalog snapshot.
type RankQuery struct {
	// MinVotes keeps only movies with more votes than this when positive.
	MinVotes int
	// ExcludeUserID drops movies the user has a preference for when positive.
	ExcludeUserID int
	// Limit caps the result when positive.
	Limit int
}

// ListRanked returns movies ordered by rating desc then vote count desc,
// unknown values last and ties by id.
func (r *MovieRepository) ListRanked(ctx context.Context, q RankQuery) ([]models.Movie, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if q.MinVotes > 0 {
		conditions = append(conditions, fmt.Sprintf("m.vote_count > $%d", argIdx))
		args = append(args, q.MinVotes)
		argIdx++
	}
	if q.ExcludeUserID > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM user_preferences p WHERE p.movie_id = m.id AND p.user_id = $%d)", argIdx))
		args = append(args, q.ExcludeUserID)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM movies m
		WHERE %s
		ORDER BY m.vote_average DESC NULLS LAST, m.vote_count DESC NULLS LAST, m.id ASC`,
		movieColumns, strings.Join(conditions, " AND "))
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, q.Limit)
	}

	movies, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ranked query failed: %w", err)
	}
	return movies, nil
}

func (r *MovieRepository) query(ctx context.Context, query string, args ...any) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}
