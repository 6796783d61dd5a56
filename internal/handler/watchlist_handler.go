package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"next-watch/internal/middleware"
	"next-watch/internal/models"
	"next-watch/internal/validation"
)

// WatchListManager maintains the caller's saved titles.
type WatchListManager interface {
	Add(ctx context.Context, user *models.User, movieID int) error
	Remove(ctx context.Context, user *models.User, movieID int) error
	List(ctx context.Context, user *models.User) ([]models.Movie, error)
}

// WatchListHandler handles watch-list endpoints.
type WatchListHandler struct {
	svc WatchListManager
}

// NewWatchListHandler creates a new WatchListHandler.
func NewWatchListHandler(svc WatchListManager) *WatchListHandler {
	return &WatchListHandler{svc: svc}
}

// List returns the caller's watch list, newest first.
// @Summary Get watch list
// @Tags watchlist
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /watchlist [get]
func (h *WatchListHandler) List(c fiber.Ctx) error {
	movies, err := h.svc.List(c.Context(), middleware.UserFrom(c))
	if err != nil {
		return mutationError(c, "retrieve watch list", err)
	}
	return c.JSON(fiber.Map{"watch_list": movies})
}

// Add saves a title to the caller's watch list. Adding twice is a no-op.
// @Summary Add to watch list
// @Tags watchlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.WatchListRequest true "Movie"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ValidationErrorResponse
// @Router /watchlist [post]
func (h *WatchListHandler) Add(c fiber.Ctx) error {
	return h.mutate(c, "add to watch list", h.svc.Add)
}

// Remove deletes a title from the caller's watch list.
// @Summary Remove from watch list
// @Tags watchlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.WatchListRequest true "Movie"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ValidationErrorResponse
// @Router /watchlist [delete]
func (h *WatchListHandler) Remove(c fiber.Ctx) error {
	return h.mutate(c, "remove from watch list", h.svc.Remove)
}

func (h *WatchListHandler) mutate(c fiber.Ctx, op string, fn func(context.Context, *models.User, int) error) error {
	var req models.WatchListRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return mutationError(c, op, err)
	}
	if err := fn(c.Context(), middleware.UserFrom(c), req.MovieID); err != nil {
		return mutationError(c, op, err)
	}
	return c.JSON(SuccessResponse{Success: true})
}
