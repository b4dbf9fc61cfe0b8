package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// NoCacheHeaders marks responses as uncacheable; used on every auth route
// since they carry tokens.
func NoCacheHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		return c.Next()
	}
}

// PrivateNoStore keeps tenant data out of shared caches
func PrivateNoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() == fiber.MethodGet {
			c.Set(fiber.HeaderCacheControl, "private, no-store")
		}
		return err
	}
}
