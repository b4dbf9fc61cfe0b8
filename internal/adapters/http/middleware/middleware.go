package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// AppConfig builds the fiber settings. Behind a proxy only trusted peers may
// set the client address, and fiber keeps the first valid IP of the header.
func AppConfig(cfg *config.Config, log *slog.Logger) fiber.Config {
	fiberCfg := fiber.Config{
		AppName:            "Aquora API v1.0",
		ErrorHandler:       CustomErrorHandler(log),
		EnableIPValidation: true,
	}
	if cfg.TrustProxy {
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = cfg.TrustedProxies
	}
	return fiberCfg
}

// Setup configures all middlewares for the application. storage backs the
// rate limiter; nil keeps counters in memory.
func Setup(app *fiber.App, cfg *config.Config, storage fiber.Storage) {
	// Recover middleware - catches panics
	app.Use(recover.New())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Security Headers middleware (Helmet)
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	// General API limit per IP
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.Max,
		Expiration: 1 * time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.TooManyRequests(c, "Too many requests, please slow down")
		},
	}))

	if cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	app.Use(cors.New(corsConfig(cfg)))
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Auth-Return-Refresh-Token",
	}
	if cfg.AllowsAnyOrigin() {
		// credentials cannot be combined with a wildcard origin
		c.AllowOrigins = "*"
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = strings.Join(cfg.CORSOrigins, ",")
	c.AllowCredentials = true
	return c
}

// AuthRateLimiter limits login/register attempts per IP
func AuthRateLimiter(cfg *config.Config, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.RateLimit.AuthMax,
		Expiration: 1 * time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "-auth"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.TooManyRequests(c, "Too many attempts, please wait a minute")
		},
	})
}

// CustomErrorHandler renders every error as the standard failure envelope.
// Domain errors keep their status and message; anything unrecognised
// becomes a 500 whose details only reach the log.
func CustomErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if de, ok := domain.AsError(err); ok {
			if de.Kind == domain.KindInternal {
				log.ErrorContext(c.UserContext(), "request failed",
					"method", c.Method(),
					"path", c.Path(),
					"error", err,
				)
				return response.Error(c, fiber.StatusInternalServerError, "Internal server error", domain.CodeInternal, nil)
			}
			return response.Error(c, de.Status(), de.Message, de.Code, de.Details)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return response.Error(c, fe.Code, fe.Message, "", nil)
		}

		log.ErrorContext(c.UserContext(), "unhandled error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return response.Error(c, fiber.StatusInternalServerError, "Internal server error", domain.CodeInternal, nil)
	}
}
