package handler

import (
	"github.com/gofiber/fiber/v3"

	"next-watch/internal/middleware"
)

// Routes bundles the handlers and middleware mounted under /api/v1.
type Routes struct {
	Movies          *MovieHandler
	Preferences     *PreferenceHandler
	WatchList       *WatchListHandler
	Recommendations *RecommendationHandler
	Auth            *middleware.Authenticator
	RateLimiter     *middleware.RateLimiter
}

// Register mounts every API route on router.
func (r Routes) Register(router fiber.Router) {
	api := router.Group("/api/v1")
	api.Get("/health", Health)

	api.Use(middleware.Identity(r.Auth))
	if r.RateLimiter != nil {
		api.Use(r.RateLimiter.Handler())
	}

	api.Get("/recommendations", r.Recommendations.GetRecommendations)
	api.Get("/movies", r.Movies.ListMovies)
	api.Get("/movies/:id", r.Movies.GetMovie)
	api.Get("/search", r.Movies.Search)

	requireUser := middleware.RequireUser()
	api.Post("/preferences", requireUser, r.Preferences.RecordPreference)
	api.Get("/watched", requireUser, r.Preferences.Watched)

	api.Get("/watchlist", requireUser, r.WatchList.List)
	api.Post("/watchlist", requireUser, r.WatchList.Add)
	api.Delete("/watchlist", requireUser, r.WatchList.Remove)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.Post("/sync", r.Movies.SyncPopular)
	admin.Post("/import/:type/:tmdb_id", r.Movies.Import)
}
