package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"next-watch/internal/middleware"
	"next-watch/internal/models"
	"next-watch/internal/validation"
)

// PreferenceRecorder stores ratings and lists the caller's rated titles.
type PreferenceRecorder interface {
	RecordPreference(ctx context.Context, user *models.User, movieID int, rating models.Rating) (*models.Preference, error)
	Watched(ctx context.Context, user *models.User) ([]models.RatedMovie, error)
}

// PreferenceHandler handles rating endpoints.
type PreferenceHandler struct {
	svc PreferenceRecorder
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(svc PreferenceRecorder) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

// RecordPreference stores the caller's liked or disliked rating.
// @Summary Rate a title
// @Tags preferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.RecordPreferenceRequest true "Rating"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ValidationErrorResponse
// @Router /preferences [post]
func (h *PreferenceHandler) RecordPreference(c fiber.Ctx) error {
	var req models.RecordPreferenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return mutationError(c, "record preference", err)
	}

	if _, err := h.svc.RecordPreference(c.Context(), middleware.UserFrom(c), req.MovieID, req.Rating); err != nil {
		return mutationError(c, "record preference", err)
	}
	return c.JSON(SuccessResponse{Success: true})
}

// Watched lists the caller's rated titles, newest first.
// @Summary Watched history
// @Tags preferences
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /watched [get]
func (h *PreferenceHandler) Watched(c fiber.Ctx) error {
	movies, err := h.svc.Watched(c.Context(), middleware.UserFrom(c))
	if err != nil {
		return mutationError(c, "retrieve watched history", err)
	}
	return c.JSON(fiber.Map{"watched": movies})
}
