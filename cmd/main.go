package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"flickfinder-backend/internal/config"
	"flickfinder-backend/internal/database"
	"flickfinder-backend/internal/handler"
	"flickfinder-backend/internal/repository"
	"flickfinder-backend/internal/service"
	"flickfinder-backend/internal/session"
	"flickfinder-backend/internal/tmdb"
)

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable; sessions degrade to
	// refill-per-request and rate limiting fails open)
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without session cache", "error", err)
	}

	// Initialize TMDB client
	catalog := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)

	// Initialize layers
	movieRepo := repository.NewMovieRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	filterRepo := repository.NewFilterRepository(db)
	userRepo := repository.NewUserRepository(db)

	sessions := session.NewStore(rdb, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	exclusions := service.NewExclusionCalculator(interactionRepo)

	recommender := service.NewRecommender(catalog, movieRepo, filterRepo, sessions, exclusions)
	recorder := service.NewRecorder(catalog, movieRepo, interactionRepo)
	movies := service.NewMovies(catalog, movieRepo, rdb)
	auth := service.NewAuth(userRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHrs)*time.Hour)

	authHandler := handler.NewAuthHandler(auth)
	movieHandler := handler.NewMovieHandler(recommender, movies)
	interactionHandler := handler.NewInteractionHandler(recorder, recommender)
	rateLimiter := handler.NewRateLimiter(rdb, 100, 60)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FlickFinder",
		ServerHeader: "FlickFinder",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(rateLimiter.Handler())

	// API routes
	api := app.Group("/api/v1")
	api.Get("/health", movieHandler.Health)
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)

	authed := api.Group("", authHandler.Middleware())
	authed.Get("/movies/next", movieHandler.NextMovie)
	authed.Get("/movies/search", movieHandler.Search)
	authed.Get("/movies/:id", movieHandler.GetMovie)
	authed.Get("/genres", movieHandler.Genres)
	authed.Post("/interactions", interactionHandler.Record)
	authed.Get("/watchlist", interactionHandler.Watchlist)
	authed.Post("/watchlist/remove", interactionHandler.RemoveFromWatchlist)
	authed.Get("/filters", interactionHandler.GetFilters)
	authed.Post("/filters", interactionHandler.SaveFilters)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down flickfinder backend...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting flickfinder backend", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
