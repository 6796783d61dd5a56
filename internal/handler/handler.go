package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"next-watch/internal/service"
	"next-watch/internal/validation"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists field failures for a 422 response.
type ValidationErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields"`
}

// SuccessResponse is returned by mutations.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   "next-watch",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

// mutationError maps a service error from a write endpoint. Unknown movies
// and bad ratings are validation failures there, not lookups.
func mutationError(c fiber.Ctx, op string, err error) error {
	var ve *validation.RequestValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationErrorResponse{
			Error:  ve.Error(),
			Fields: ve.Fields,
		})
	case errors.Is(err, service.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrMovieNotFound), errors.Is(err, service.ErrInvalidRating):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: err.Error()})
	}
	return internalError(c, op, err)
}

func internalError(c fiber.Ctx, op string, err error) error {
	slog.Error("request failed", "op", op, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "failed to " + op,
	})
}
