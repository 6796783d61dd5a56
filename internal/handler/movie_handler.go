package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"next-watch/internal/models"
	"next-watch/internal/service"
	"next-watch/internal/validation"
)

const (
	defaultSyncPages = 5
	maxSyncPages     = 50
)

// CatalogService is the catalog behaviour the movie endpoints need.
type CatalogService interface {
	ListMovies(ctx context.Context, params models.MovieListParams) (*models.MovieListResponse, error)
	GetMovie(ctx context.Context, id int) (*models.Movie, error)
	Search(ctx context.Context, query string, page int) ([]models.Movie, error)
	SyncPopular(ctx context.Context, pages int) (int, error)
	Import(ctx context.Context, kind models.MediaType, tmdbID int) (*models.Movie, error)
}

// MovieHandler handles HTTP requests for the catalog.
type MovieHandler struct {
	svc CatalogService
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc CatalogService) *MovieHandler {
	return &MovieHandler{svc: svc}
}

// ListMovies returns a paginated list of catalog titles.
// @Summary List movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Param type query string false "Media type" Enums(movie,show)
// @Param sort_by query string false "Sort field" Enums(vote_average,release_date,title) default(vote_average)
// @Param order query string false "Sort order" Enums(asc,desc) default(desc)
// @Success 200 {object} models.MovieListResponse
// @Failure 500 {object} ErrorResponse
// @Router /movies [get]
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	params := models.MovieListParams{
		Page:     fiber.Query(c, "page", 1),
		PageSize: fiber.Query(c, "page_size", 20),
		Type:     c.Query("type"),
		SortBy:   c.Query("sort_by", "vote_average"),
		Order:    c.Query("order", "desc"),
	}

	result, err := h.svc.ListMovies(c.Context(), params)
	if err != nil {
		return internalError(c, "retrieve movies", err)
	}
	return c.JSON(result)
}

// GetMovie returns a single catalog title.
// @Summary Get movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.Movie
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovie(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return badRequest(c, "invalid movie ID")
	}

	movie, err := h.svc.GetMovie(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "movie not found"})
		}
		return internalError(c, "retrieve movie", err)
	}
	return c.JSON(movie)
}

// Search queries the provider and returns the imported matches.
// @Summary Search titles
// @Tags movies
// @Produce json
// @Param q query string true "Search text"
// @Param page query int false "Provider page" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /search [get]
func (h *MovieHandler) Search(c fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return badRequest(c, "query parameter q is required")
	}
	page := fiber.Query(c, "page", 1)
	if page < 1 {
		page = 1
	}

	movies, err := h.svc.Search(c.Context(), query, page)
	if err != nil {
		return internalError(c, "search titles", err)
	}
	return c.JSON(fiber.Map{
		"query":   query,
		"page":    page,
		"results": movies,
	})
}

// SyncPopular imports popular movies and shows from the provider.
// @Summary Sync popular titles
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param pages query int false "Number of pages to sync" default(5)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/sync [post]
func (h *MovieHandler) SyncPopular(c fiber.Ctx) error {
	pages := fiber.Query(c, "pages", defaultSyncPages)
	if pages < 1 {
		pages = 1
	}
	if pages > maxSyncPages {
		pages = maxSyncPages
	}

	count, err := h.svc.SyncPopular(c.Context(), pages)
	if err != nil {
		slog.Error("sync failed", "pages", pages, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "sync failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":       "sync completed",
		"titles_synced": count,
		"pages":         pages,
	})
}

// Import stores a single provider title in the catalog.
// @Summary Import a title
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type path string true "Media type" Enums(movie,show)
// @Param tmdb_id path int true "TMDB id"
// @Success 200 {object} models.Movie
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ValidationErrorResponse
// @Router /admin/import/{type}/{tmdb_id} [post]
func (h *MovieHandler) Import(c fiber.Ctx) error {
	tmdbID, _ := strconv.Atoi(c.Params("tmdb_id"))
	req := models.ImportRequest{
		Type:   c.Params("type"),
		TMDBID: tmdbID,
	}
	if err := validation.Struct(req); err != nil {
		return mutationError(c, "import title", err)
	}

	movie, err := h.svc.Import(c.Context(), models.MediaType(req.Type), req.TMDBID)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "title not found at provider"})
		}
		return internalError(c, "import title", err)
	}
	return c.JSON(movie)
}
