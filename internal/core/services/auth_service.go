package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/pkg/jwt"
	"aquora-api/internal/pkg/password"

	"gorm.io/gorm"
)

// Client-facing auth failure messages
const (
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgExpiredRefreshToken = "Expired refresh token"
	msgMobileInUse         = "Mobile number already in use"
	msgUserNotFound        = "User not found"
	msgUserInactive        = "User account is inactive"
)

const (
	maxUserAgentLength = 512
	maxIPAddressLength = 64
)

// AuthService handles registration, login and the refresh token lifecycle
type AuthService struct {
	users     repositories.UserRepository
	tokens    repositories.RefreshTokenRepository
	resolver  *AuthorizationResolver
	hasher    *password.Hasher
	codec     *jwt.Codec
	events    EventPublisher
	cfg       *config.Config
	logger    *slog.Logger
	now       Clock
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repositories.UserRepository,
	tokens repositories.RefreshTokenRepository,
	resolver *AuthorizationResolver,
	hasher *password.Hasher,
	codec *jwt.Codec,
	events EventPublisher,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthService {
	// compared against when the mobile number is unknown so both login
	// failures spend the same bcrypt time
	dummyHash, _ := hasher.Hash("aquora-login-timing-placeholder")

	return &AuthService{
		users:     users,
		tokens:    tokens,
		resolver:  resolver,
		hasher:    hasher,
		codec:     codec,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		now:       systemClock,
		dummyHash: dummyHash,
	}
}

// WithClock replaces the service clock
func (s *AuthService) WithClock(now Clock) *AuthService {
	s.now = now
	return s
}

// RegisterInput represents registration input
type RegisterInput struct {
	FullName          string `json:"fullName" validate:"required,min=1,max=150"`
	MobileNumber      string `json:"mobileNumber" validate:"required,mobile"`
	Password          string `json:"password" validate:"required,min=8,max=72,maxbytes=72"`
	Role              string `json:"role" validate:"required,oneof=PRESIDENT SECRETARY TREASURER METER_READER"`
	PreferredLanguage string `json:"preferredLanguage" validate:"omitempty,oneof=EN SI TA"`
}

// LoginInput represents login input
type LoginInput struct {
	MobileNumber string `json:"mobileNumber" validate:"required,mobile"`
	Password     string `json:"password" validate:"required,max=72,maxbytes=72"`
}

// AuthSuccess is the body returned by register, login and refresh
type AuthSuccess struct {
	User                 *models.PublicUser `json:"user"`
	AccessToken          string             `json:"accessToken"`
	AccessTokenExpiresAt time.Time          `json:"accessTokenExpiresAt"`
	EffectiveRole        domain.Role        `json:"effectiveRole"`
	EffectiveSocietyID   *string            `json:"effectiveSocietyId"`
	RefreshToken         string             `json:"refreshToken,omitempty"`
}

// AuthResult carries the raw refresh value next to the response body. The
// raw value only ever leaves through the cookie or an opted-in body field.
type AuthResult struct {
	AuthSuccess
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Register registers a new user and signs them in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput, meta domain.RequestMeta) (*AuthResult, error) {
	exists, err := s.users.ExistsByMobileNumber(ctx, input.MobileNumber)
	if err != nil {
		return nil, domain.NewInternal("check mobile number", err)
	}
	if exists {
		return nil, domain.NewConflict(msgMobileInUse)
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return nil, domain.NewValidation("Invalid request body", map[string]string{"password": "maxbytes=72"})
	}
	if err != nil {
		return nil, domain.NewInternal("hash password", err)
	}

	language := input.PreferredLanguage
	if language == "" {
		language = string(domain.LanguageEnglish)
	}

	user := &models.User{
		MobileNumber:      input.MobileNumber,
		FullName:          input.FullName,
		PasswordHash:      hashedPassword,
		Role:              input.Role,
		PreferredLanguage: language,
		IsActive:          true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewConflict(msgMobileInUse)
		}
		return nil, domain.NewInternal("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	return s.issueTokensForUser(ctx, user, meta)
}

// Login authenticates a user. Unknown mobile numbers and wrong passwords get
// the same error.
func (s *AuthService) Login(ctx context.Context, input *LoginInput, meta domain.RequestMeta) (*AuthResult, error) {
	user, err := s.users.GetByMobileNumber(ctx, input.MobileNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.Verify(input.Password, s.dummyHash)
			return nil, domain.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, domain.NewInternal("load user", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.NewUnauthorized(msgInvalidCredentials)
	}

	if !user.IsActive {
		return nil, domain.NewForbidden(msgUserInactive)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)

	return s.issueTokensForUser(ctx, user, meta)
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated or revoked also revokes everything issued from it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta domain.RequestMeta) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
	}

	stored, err := s.tokens.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
		}
		return nil, domain.NewInternal("load refresh token", err)
	}

	now := s.now()

	if stored.IsRevoked() {
		// only a rotated token has successors; a logged-out one is just stale
		if stored.ReplacedByTokenID != nil {
			s.handleReuse(ctx, stored, now)
		}
		return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
	}

	if stored.IsExpiredAt(now) {
		return nil, domain.NewUnauthorized(msgExpiredRefreshToken)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
		}
		return nil, domain.NewInternal("load token owner", err)
	}

	if !user.IsActive {
		if _, err := s.tokens.Revoke(ctx, stored.ID, now, nil); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke token of inactive user", "user_id", user.ID, "error", err)
		}
		return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
	}

	effective, err := s.resolver.ResolveEffectiveContext(ctx, user)
	if err != nil {
		return nil, domain.NewInternal("resolve effective context", err)
	}

	value, next, err := s.newRefreshToken(user.ID, now, meta)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Rotate(ctx, stored.ID, next, now); err != nil {
		if errors.Is(err, repositories.ErrTokenAlreadyRevoked) {
			s.logger.WarnContext(ctx, "concurrent refresh lost rotation race", "user_id", user.ID, "token_id", stored.ID)
			return nil, domain.NewUnauthorized(msgInvalidRefreshToken)
		}
		return nil, domain.NewInternal("rotate refresh token", err)
	}

	s.logger.InfoContext(ctx, "refresh token rotated", "user_id", user.ID, "token_id", next.ID)

	return s.buildResult(user, effective, value, next.ExpiresAt)
}

// Logout revokes the presented refresh token. Missing, unknown and already
// revoked tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	stored, err := s.tokens.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return domain.NewInternal("load refresh token", err)
	}
	if stored.IsRevoked() {
		return nil
	}

	if _, err := s.tokens.Revoke(ctx, stored.ID, s.now(), nil); err != nil {
		return domain.NewInternal("revoke refresh token", err)
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", stored.UserID)
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	revoked, err := s.tokens.RevokeAllByUserID(ctx, userID, s.now())
	if err != nil {
		return domain.NewInternal("revoke user sessions", err)
	}

	s.logger.InfoContext(ctx, "all sessions revoked", "user_id", userID, "revoked", revoked)
	s.publish(ctx, domain.Event{
		Name:    domain.EventAllSessionsRevoked,
		ActorID: &userID,
		UserID:  userID,
		Data:    map[string]any{"revoked": revoked},
	})
	return nil
}

// Me returns the public view of the user
func (s *AuthService) Me(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound(msgUserNotFound)
		}
		return nil, domain.NewInternal("load user", err)
	}
	return user.ToPublic(), nil
}

func (s *AuthService) issueTokensForUser(ctx context.Context, user *models.User, meta domain.RequestMeta) (*AuthResult, error) {
	effective, err := s.resolver.ResolveEffectiveContext(ctx, user)
	if err != nil {
		return nil, domain.NewInternal("resolve effective context", err)
	}

	value, token, err := s.newRefreshToken(user.ID, s.now(), meta)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, domain.NewInternal("store refresh token", err)
	}

	return s.buildResult(user, effective, value, token.ExpiresAt)
}

// newRefreshToken mints a raw value and the row that stores only its hash
func (s *AuthService) newRefreshToken(userID string, now time.Time, meta domain.RequestMeta) (string, *models.RefreshToken, error) {
	value, err := password.GenerateRefreshToken()
	if err != nil {
		return "", nil, domain.NewInternal("generate refresh token", err)
	}

	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(value),
		ExpiresAt: now.Add(s.cfg.Auth.RefreshTokenTTL()),
		IPAddress: optional(truncate(meta.IPAddress, maxIPAddressLength)),
		UserAgent: optional(truncate(meta.UserAgent, maxUserAgentLength)),
	}
	return value, token, nil
}

func (s *AuthService) buildResult(user *models.User, effective domain.EffectiveContext, refreshValue string, refreshExpiresAt time.Time) (*AuthResult, error) {
	accessToken, accessExpiresAt, err := s.codec.Sign(jwt.Identity{
		UserID:       user.ID,
		MobileNumber: user.MobileNumber,
		Role:         effective.Role,
		SocietyID:    effective.SocietyID,
	})
	if err != nil {
		return nil, domain.NewInternal("sign access token", err)
	}

	return &AuthResult{
		AuthSuccess: AuthSuccess{
			User:                 user.ToPublic(),
			AccessToken:          accessToken,
			AccessTokenExpiresAt: accessExpiresAt,
			EffectiveRole:        effective.Role,
			EffectiveSocietyID:   effective.SocietyID,
		},
		RefreshToken:          refreshValue,
		RefreshTokenExpiresAt: refreshExpiresAt,
	}, nil
}

// handleReuse revokes the live successors of a token that was presented
// after it had already been revoked, and reports the event.
func (s *AuthService) handleReuse(ctx context.Context, stored *models.RefreshToken, now time.Time) {
	revoked, err := s.tokens.RevokeChain(ctx, stored.ID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh chain", "user_id", stored.UserID, "token_id", stored.ID, "error", err)
	}

	s.logger.WarnContext(ctx, "revoked refresh token presented again",
		"user_id", stored.UserID,
		"token_id", stored.ID,
		"revoked_successors", revoked,
	)
	s.publish(ctx, domain.Event{
		Name:   domain.EventRefreshTokenReused,
		UserID: stored.UserID,
		Data: map[string]any{
			"tokenId":           stored.ID,
			"revokedSuccessors": revoked,
		},
	})
}

func (s *AuthService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event", event.Name, "error", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
