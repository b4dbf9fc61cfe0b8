package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquora-api/internal/adapters/cache"
	"aquora-api/internal/adapters/http/middleware"
	"aquora-api/internal/adapters/http/routes"
	"aquora-api/internal/adapters/messaging"
	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/config"
	"aquora-api/internal/core/services"
	"aquora-api/internal/logging"
	"aquora-api/internal/pkg/password"

	"github.com/gofiber/fiber/v2"

	_ "aquora-api/docs" // Swagger docs
)

// @title Aquora API
// @version 1.0
// @description Water billing society administration API

// @contact.name API Support

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.AppMode)
	slog.SetDefault(logger)

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		logger.Error("failed to auto migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("database migration completed")

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Error("invalid bcrypt cost", "error", err)
		os.Exit(1)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := config.NewSeeder(db, hasher, cfg.Seed, logger).Run(seedCtx); err != nil {
		logger.Warn("failed to seed super admin", "error", err)
	}
	cancelSeed()

	// Optional infrastructure
	redisClient := config.NewRedisClient(cfg.Redis)
	var limiterStorage fiber.Storage
	if redisClient != nil {
		limiterStorage = cache.NewRedisStorage(redisClient, "aquora:limiter:")
		defer redisClient.Close()
	}

	events := messaging.NewPublisher(cfg.AMQP, logger)
	defer events.Close()

	// Refresh token housekeeping
	cronService := services.NewCronService(repositories.NewRefreshTokenRepository(db), events, cfg.Housekeeping, logger)
	if err := cronService.Start(); err != nil {
		logger.Error("failed to start cron service", "error", err)
		os.Exit(1)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(middleware.AppConfig(cfg, logger))

	middleware.Setup(app, cfg, limiterStorage)

	if err := routes.Setup(app, db, cfg, routes.Infra{
		Redis:          redisClient,
		LimiterStorage: limiterStorage,
		Events:         events,
		Logger:         logger,
	}); err != nil {
		logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go gracefulShutdown(app, logger)

	logger.Info("server starting", "addr", cfg.Addr(), "mode", cfg.AppMode)
	if err := app.Listen(cfg.Addr()); err != nil {
		logger.Error("failed to start server", "error", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	logger.Info("server stopped gracefully")
}
