package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"aquora-api/internal/adapters/http/middleware"
	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/core/services"
	"aquora-api/internal/pkg/response"
	"aquora-api/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// HeaderReturnRefreshToken opts a non-browser client into receiving the raw
// refresh token in the JSON body
const HeaderReturnRefreshToken = "X-Auth-Return-Refresh-Token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		logger:      logger,
	}
}

// RefreshRequest is the optional body of refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register handles user registration
// @Summary Register new user
// @Description Create an account and start a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration data"
// @Param X-Auth-Return-Refresh-Token header string false "true or 1 to include refreshToken in the body"
// @Success 201 {object} response.Response{data=services.AuthSuccess}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidation("Invalid request body", nil)
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)

	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.UserContext(), &req, requestMeta(c))
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, result)
	return response.Created(c, "User registered successfully", h.authPayload(c, result))
}

// Login handles user login
// @Summary Login user
// @Description Authenticate with mobile number and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Param X-Auth-Return-Refresh-Token header string false "true or 1 to include refreshToken in the body"
// @Success 200 {object} response.Response{data=services.AuthSuccess}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidation("Invalid request body", nil)
	}
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)

	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.UserContext(), &req, requestMeta(c))
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, result)
	return response.Success(c, "Login successful", h.authPayload(c, result))
}

// Refresh handles token refresh
// @Summary Refresh access token
// @Description Rotate the refresh token from the cookie or body and issue a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest false "Refresh token for clients without cookies"
// @Success 200 {object} response.Response{data=services.AuthSuccess}
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	result, err := h.authService.Refresh(c.UserContext(), h.presentedRefreshToken(c), requestMeta(c))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.clearRefreshCookie(c)
		}
		return err
	}

	h.setRefreshCookie(c, result)
	return response.Success(c, "Token refreshed successfully", h.authPayload(c, result))
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the presented refresh token. Always succeeds.
// @Tags Auth
// @Accept json
// @Param body body RefreshRequest false "Refresh token for clients without cookies"
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), h.presentedRefreshToken(c)); err != nil {
		h.logger.ErrorContext(c.UserContext(), "logout failed", "error", err)
	}

	h.clearRefreshCookie(c)
	return response.NoContent(c)
}

// LogoutAll handles logout from all devices
// @Summary Logout from all devices
// @Description Revoke all refresh tokens for the user
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Response
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	if err := h.authService.LogoutAll(c.UserContext(), auth.UserID); err != nil {
		return err
	}

	h.clearRefreshCookie(c)
	return response.NoContent(c)
}

// Me returns the current user info
// @Summary Get current user
// @Description Get the currently authenticated user's information
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.UserContext(), auth.UserID)
	if err != nil {
		return err
	}

	return response.Success(c, "", user)
}

// presentedRefreshToken reads the cookie first, then a JSON body
func (h *AuthHandler) presentedRefreshToken(c *fiber.Ctx) string {
	if token := c.Cookies(h.cfg.Cookie.Name); token != "" {
		return token
	}

	if len(c.Body()) == 0 {
		return ""
	}
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) authPayload(c *fiber.Ctx, result *services.AuthResult) services.AuthSuccess {
	payload := result.AuthSuccess
	switch strings.ToLower(strings.TrimSpace(c.Get(HeaderReturnRefreshToken))) {
	case "true", "1":
		payload.RefreshToken = result.RefreshToken
	}
	return payload
}

// setRefreshCookie sets the refresh token cookie
func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, result *services.AuthResult) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    result.RefreshToken,
		Path:     h.cfg.Cookie.Path,
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   h.cfg.Auth.RefreshTokenTTLDays * 24 * 60 * 60,
		Expires:  result.RefreshTokenExpiresAt,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
	})
}

// clearRefreshCookie expires the refresh token cookie
func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    "",
		Path:     h.cfg.Cookie.Path,
		Domain:   h.cfg.Cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
	})
}

func requestMeta(c *fiber.Ctx) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
