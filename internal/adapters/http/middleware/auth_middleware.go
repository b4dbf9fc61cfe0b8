package middleware

import (
	"errors"
	"strings"

	"aquora-api/internal/core/domain"
	"aquora-api/internal/core/services"
	"aquora-api/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

const authLocalsKey = "auth"

// AuthContext is the verified identity of the caller
type AuthContext struct {
	UserID       string
	MobileNumber string
	Role         domain.Role
	SocietyID    *string
}

// TokenVerifier verifies access tokens
type TokenVerifier interface {
	Verify(token string) (*jwt.Identity, error)
}

// AuthMiddleware requires a valid Bearer access token
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		accessToken, ok := strings.CutPrefix(authHeader, "Bearer ")
		accessToken = strings.TrimSpace(accessToken)
		if !ok || accessToken == "" {
			return domain.NewUnauthorized("Access token required")
		}

		identity, err := verifier.Verify(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return domain.NewUnauthorized("Access token expired")
			}
			return domain.NewUnauthorized("Invalid access token")
		}

		c.Locals(authLocalsKey, &AuthContext{
			UserID:       identity.UserID,
			MobileNumber: identity.MobileNumber,
			Role:         identity.Role,
			SocietyID:    identity.SocietyID,
		})

		return c.Next()
	}
}

// CurrentAuth returns the identity set by AuthMiddleware
func CurrentAuth(c *fiber.Ctx) (*AuthContext, bool) {
	auth, ok := c.Locals(authLocalsKey).(*AuthContext)
	return auth, ok && auth != nil
}

// MustAuth returns the identity or an Unauthorized error
func MustAuth(c *fiber.Ctx) (*AuthContext, error) {
	auth, ok := CurrentAuth(c)
	if !ok {
		return nil, domain.NewUnauthorized("Unauthorized")
	}
	return auth, nil
}

// RequireRoles allows only the given effective roles
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, err := MustAuth(c)
		if err != nil {
			return err
		}

		for _, role := range allowed {
			if auth.Role == role {
				return c.Next()
			}
		}

		return domain.NewForbidden("You don't have permission to access this resource")
	}
}

// SuperAdminOnly allows only SUPER_ADMIN
func SuperAdminOnly() fiber.Handler {
	return RequireRoles(domain.RoleSuperAdmin)
}

// RequireSocietyAccess checks the :param society against the caller's
// effective society
func RequireSocietyAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, err := MustAuth(c)
		if err != nil {
			return err
		}

		if err := services.EnsureTenantAccess(auth.Role, auth.SocietyID, c.Params(param)); err != nil {
			return err
		}
		return c.Next()
	}
}
