package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"next-watch/internal/metrics"
	"next-watch/internal/models"
	"next-watch/internal/repository"
	"next-watch/internal/tmdb"
)

const (
	movieListCacheTTL   = 5 * time.Minute
	movieDetailCacheTTL = 30 * time.Minute
)

// MovieStore is the catalog storage used by the services.
type MovieStore interface {
	Upsert(ctx context.Context, m *models.Movie) error
	GetByID(ctx context.Context, id int) (*models.Movie, error)
	Exists(ctx context.Context, id int) (bool, error)
	List(ctx context.Context, params models.MovieListParams) (*models.MovieListResponse, error)
	ListRanked(ctx context.Context, q repository.RankQuery) ([]models.Movie, error)
}

// MetadataProvider is the external movie/TV metadata source.
type MetadataProvider interface {
	PopularMovies(ctx context.Context, page int) (*tmdb.PageResponse, error)
	PopularShows(ctx context.Context, page int) (*tmdb.PageResponse, error)
	Search(ctx context.Context, query string, page int) (*tmdb.PageResponse, error)
	MovieDetails(ctx context.Context, tmdbID int) (*tmdb.Title, error)
	ShowDetails(ctx context.Context, tmdbID int) (*tmdb.Title, error)
	Genres(ctx context.Context, kind string) ([]tmdb.Genre, error)
}

// MovieService handles catalog reads and imports from the metadata provider.
type MovieService struct {
	repo     MovieStore
	provider MetadataProvider
	cache    cache

	mu     sync.Mutex
	genres tmdb.GenreNames
}

// NewMovieService creates a new MovieService.
func NewMovieService(repo MovieStore, provider MetadataProvider, rdb *redis.Client) *MovieService {
	return &MovieService{
		repo:     repo,
		provider: provider,
		cache:    newCache("movies", rdb),
	}
}

// SyncPopular imports pages of popular movies and shows. Failed pages and
// titles are logged and skipped. It returns the number of titles stored.
func (s *MovieService) SyncPopular(ctx context.Context, pages int) (int, error) {
	if pages < 1 {
		pages = 1
	}
	slog.Info("starting TMDB sync", "pages", pages)

	genres := s.refreshGenres(ctx)

	sources := []struct {
		kind  models.MediaType
		fetch func(context.Context, int) (*tmdb.PageResponse, error)
	}{
		{models.MediaTypeMovie, s.provider.PopularMovies},
		{models.MediaTypeShow, s.provider.PopularShows},
	}

	totalSynced := 0
	for _, src := range sources {
		for page := 1; page <= pages; page++ {
			if err := ctx.Err(); err != nil {
				return totalSynced, err
			}

			result, err := src.fetch(ctx, page)
			if err != nil {
				slog.Error("failed to fetch TMDB page", "kind", src.kind, "page", page, "error", err)
				continue
			}

			stored := s.store(ctx, result.Results, func(tmdb.Title) (models.MediaType, bool) {
				return src.kind, true
			}, genres)
			totalSynced += len(stored)

			slog.Info("synced page", "kind", src.kind, "page", page, "titles", len(stored))
			if page >= result.TotalPages {
				break
			}
		}
	}

	s.cache.invalidate(ctx, "movies:*", "movie:*", "recommendations:*")

	slog.Info("TMDB sync completed", "total_synced", totalSynced)
	return totalSynced, nil
}

// Search runs a provider search and imports the movie and show results.
// A provider failure yields an empty result.
func (s *MovieService) Search(ctx context.Context, query string, page int) ([]models.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Movie{}, nil
	}
	if page < 1 {
		page = 1
	}

	result, err := s.provider.Search(ctx, query, page)
	if err != nil {
		slog.Error("TMDB search failed", "query", query, "error", err)
		return []models.Movie{}, nil
	}

	movies := s.store(ctx, result.Results, func(t tmdb.Title) (models.MediaType, bool) {
		return tmdb.Kind(t.MediaType)
	}, s.genreNames(ctx))
	if len(movies) > 0 {
		s.cache.invalidate(ctx, "movies:*", "recommendations:*")
	}
	return movies, nil
}

// Import fetches one title from the provider and stores it.
func (s *MovieService) Import(ctx context.Context, kind models.MediaType, tmdbID int) (*models.Movie, error) {
	var (
		title *tmdb.Title
		err   error
	)
	switch kind {
	case models.MediaTypeMovie:
		title, err = s.provider.MovieDetails(ctx, tmdbID)
	case models.MediaTypeShow:
		title, err = s.provider.ShowDetails(ctx, tmdbID)
	default:
		return nil, fmt.Errorf("unknown media type %q", kind)
	}
	if err != nil {
		slog.Error("TMDB details lookup failed", "kind", kind, "tmdb_id", tmdbID, "error", err)
		return nil, fmt.Errorf("%w: %s %d", ErrMovieNotFound, kind, tmdbID)
	}

	movie := tmdb.Normalize(*title, kind, nil)
	if err := s.repo.Upsert(ctx, &movie); err != nil {
		return nil, fmt.Errorf("failed to store imported title: %w", err)
	}
	metrics.CatalogSynced.Inc()

	s.cache.invalidate(ctx, "movies:*", fmt.Sprintf("movie:detail:%d", movie.ID), "recommendations:*")
	return &movie, nil
}

// ListMovies returns a paginated list of movies.
func (s *MovieService) ListMovies(ctx context.Context, params models.MovieListParams) (*models.MovieListResponse, error) {
	params.Validate()

	cacheKey := fmt.Sprintf("movies:list:%d:%d:%s:%s:%s",
		params.Page, params.PageSize, params.Type, params.SortBy, params.Order)

	var cached models.MovieListResponse
	if s.cache.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	s.cache.set(ctx, cacheKey, result, movieListCacheTTL)
	return result, nil
}

// GetMovie returns a movie by internal id.
func (s *MovieService) GetMovie(ctx context.Context, id int) (*models.Movie, error) {
	cacheKey := fmt.Sprintf("movie:detail:%d", id)

	var cached models.Movie
	if s.cache.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	movie, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	s.cache.set(ctx, cacheKey, movie, movieDetailCacheTTL)
	return movie, nil
}

// store normalizes and upserts provider titles. kindOf decides whether a
// result is a title and how to classify it.
func (s *MovieService) store(
	ctx context.Context,
	titles []tmdb.Title,
	kindOf func(tmdb.Title) (models.MediaType, bool),
	genres tmdb.GenreNames,
) []models.Movie {
	stored := make([]models.Movie, 0, len(titles))
	for _, t := range titles {
		kind, ok := kindOf(t)
		if !ok {
			continue
		}
		movie := tmdb.Normalize(t, kind, genres)
		if err := s.repo.Upsert(ctx, &movie); err != nil {
			slog.Error("failed to upsert title", "title", movie.Title, "tmdb_id", movie.TMDBID, "error", err)
			continue
		}
		stored = append(stored, movie)
	}
	metrics.CatalogSynced.Add(float64(len(stored)))
	return stored
}

// genreNames returns the provider genre map, fetching it on first use.
func (s *MovieService) genreNames(ctx context.Context) tmdb.GenreNames {
	s.mu.Lock()
	genres := s.genres
	s.mu.Unlock()
	if len(genres) > 0 {
		return genres
	}
	return s.refreshGenres(ctx)
}

// refreshGenres reloads the movie and TV genre lists. A failed list is
// logged and leaves its ids unmapped.
func (s *MovieService) refreshGenres(ctx context.Context) tmdb.GenreNames {
	genres := make(tmdb.GenreNames)
	for _, kind := range []string{"movie", "tv"} {
		list, err := s.provider.Genres(ctx, kind)
		if err != nil {
			slog.Error("failed to fetch TMDB genres", "kind", kind, "error", err)
			continue
		}
		genres.Add(list)
	}
	slog.Info("synced genres", "count", len(genres))

	if len(genres) > 0 {
		s.mu.Lock()
		s.genres = genres
		s.mu.Unlock()
	}
	return genres
}
