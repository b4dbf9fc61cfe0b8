package routes

import (
	"fmt"
	"log/slog"

	"aquora-api/internal/adapters/http/handlers"
	"aquora-api/internal/adapters/http/middleware"
	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/config"
	"aquora-api/internal/core/services"
	"aquora-api/internal/pkg/jwt"
	"aquora-api/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Infra holds the optional infrastructure shared by the routes
type Infra struct {
	Redis          *redis.Client         // nil when Redis is not configured
	LimiterStorage fiber.Storage         // nil keeps limiter counters in memory
	Events         services.EventPublisher
	Logger         *slog.Logger
}

// Setup wires repositories, services and handlers and registers all routes
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, infra Infra) error {
	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	codec, err := jwt.NewCodec(cfg.Auth.AccessTokenSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	// Initialize repositories
	store := repositories.NewStore(db)

	// Initialize services
	resolver := services.NewAuthorizationResolver(store.Assignments, infra.Logger)
	authService := services.NewAuthService(
		store.Users,
		store.RefreshTokens,
		resolver,
		hasher,
		codec,
		infra.Events,
		cfg,
		infra.Logger,
	)
	societyService := services.NewSocietyService(store, infra.Events, infra.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, infra.Redis, cfg)
	authHandler := handlers.NewAuthHandler(authService, cfg, infra.Logger)
	societyHandler := handlers.NewSocietyHandler(societyService)

	requireAuth := middleware.AuthMiddleware(codec)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group(cfg.APIPrefix)
	api.Get("/", healthHandler.APIInfo)
	api.Get("/health", healthHandler.HealthCheck)

	setupAuthRoutes(api.Group("/auth", middleware.NoCacheHeaders()), authHandler, requireAuth, cfg, infra.LimiterStorage)
	setupSocietyRoutes(api.Group("/societies", requireAuth, middleware.PrivateNoStore()), societyHandler)

	return nil
}

// setupAuthRoutes configures auth routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, requireAuth fiber.Handler, cfg *config.Config, storage fiber.Storage) {
	authLimiter := middleware.AuthRateLimiter(cfg, storage)

	// Public routes
	router.Post("/register", authLimiter, handler.Register)
	router.Post("/login", authLimiter, handler.Login)
	router.Post("/refresh", handler.Refresh)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", requireAuth, handler.Me)
	router.Post("/logout-all", requireAuth, handler.LogoutAll)
}

// setupSocietyRoutes configures society routes; the group already requires auth
func setupSocietyRoutes(router fiber.Router, handler *handlers.SocietyHandler) {
	superAdmin := middleware.SuperAdminOnly()
	sameSociety := middleware.RequireSocietyAccess("societyId")

	router.Post("/", superAdmin, handler.Create)
	router.Get("/", superAdmin, handler.List)

	router.Get("/:societyId", sameSociety, handler.Get)
	router.Patch("/:societyId", superAdmin, handler.Update)

	router.Get("/:societyId/officers", sameSociety, handler.Officers)
	router.Post("/:societyId/officers/assign", superAdmin, handler.AssignOfficer)
	router.Patch("/:societyId/officers/:assignmentId/deactivate", superAdmin, handler.DeactivateOfficer)

	router.Get("/:societyId/users", sameSociety, handler.Users)
}
