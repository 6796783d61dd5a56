package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"next-watch/internal/middleware"
	"next-watch/internal/models"
)

// Recommender produces the recommendation page for a caller.
type Recommender interface {
	GetRecommendations(ctx context.Context, user *models.User, limit int) (*models.RecommendationResponse, error)
}

// RecommendationHandler serves recommendations to guests and users.
type RecommendationHandler struct {
	svc Recommender
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(svc Recommender) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// GetRecommendations returns ranked titles with reasons. Guests get the
// popularity list; authenticated callers get personalized results.
// @Summary Get recommendations
// @Tags recommendations
// @Produce json
// @Param limit query int false "Number of recommendations" default(20)
// @Success 200 {object} models.RecommendationResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /recommendations [get]
func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	limit := fiber.Query(c, "limit", 0)

	resp, err := h.svc.GetRecommendations(c.Context(), middleware.UserFrom(c), limit)
	if err != nil {
		return internalError(c, "generate recommendations", err)
	}
	return c.JSON(resp)
}
