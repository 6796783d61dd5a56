package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"next-watch/internal/config"
	"next-watch/internal/database"
	"next-watch/internal/handler"
	"next-watch/internal/middleware"
	"next-watch/internal/recommend"
	"next-watch/internal/repository"
	"next-watch/internal/service"
	"next-watch/internal/textgen"
	"next-watch/internal/tmdb"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(startCtx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(startCtx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache or rate limiting", "error", err)
	}

	// Provider clients
	tmdbClient := tmdb.NewClient(cfg.TMDB)
	var gen recommend.Generator
	if c := textgen.New(cfg.TextGen); c != nil {
		gen = c
	} else {
		slog.Info("text generation disabled, using default reasons")
	}

	// Initialize layers
	movieRepo := repository.NewMovieRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	watchRepo := repository.NewWatchListRepository(db)

	engine := recommend.NewEngine(recommend.WeightsFromConfig(cfg.Recommendation))
	reasoner := recommend.NewReasoner(gen, cfg.TextGen.Timeout, cfg.TextGen.MaxConcurrent)

	movieSvc := service.NewMovieService(movieRepo, tmdbClient, rdb)
	prefSvc := service.NewPreferenceService(prefRepo, movieRepo, rdb)
	watchSvc := service.NewWatchListService(watchRepo, movieRepo)
	recSvc := service.NewRecommendationService(movieRepo, prefRepo, watchRepo, engine, reasoner, rdb, cfg.Recommendation)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Next Watch",
		ServerHeader: "Next-Watch",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML, "Next Watch API")
	}

	// API routes
	handler.Routes{
		Movies:          handler.NewMovieHandler(movieSvc),
		Preferences:     handler.NewPreferenceHandler(prefSvc),
		WatchList:       handler.NewWatchListHandler(watchSvc),
		Recommendations: handler.NewRecommendationHandler(recSvc),
		Auth:            middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AdminIDs...),
		RateLimiter:     middleware.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.WindowSeconds),
	}.Register(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down next-watch...")
		_ = app.Shutdown()
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting next-watch", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
