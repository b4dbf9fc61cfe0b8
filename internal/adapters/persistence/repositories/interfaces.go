package repositories

import (
	"context"
	"errors"
	"time"

	"aquora-api/internal/adapters/persistence/models"
)

// ErrTokenAlreadyRevoked is returned by Rotate when another request revoked
// the token between lookup and rotation.
var ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.User, error)
	ExistsByMobileNumber(ctx context.Context, mobileNumber string) (bool, error)
	BindSociety(ctx context.Context, userID, societyID string, updatedBy *string) error
	ListBySociety(ctx context.Context, societyID string, role string, offset, limit int) ([]*models.User, int64, error)
}

// RefreshTokenRepository defines refresh token repository interface.
// Tokens are only ever looked up by hash.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time, replacedByTokenID *string) (bool, error)
	Rotate(ctx context.Context, oldID string, next *models.RefreshToken, revokedAt time.Time) error
	RevokeChain(ctx context.Context, fromID string, revokedAt time.Time) (int64, error)
	RevokeAllByUserID(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountActiveByUserID(ctx context.Context, userID string, now time.Time) (int64, error)
}

// SocietyRepository defines society repository interface
type SocietyRepository interface {
	Create(ctx context.Context, society *models.Society) error
	GetByID(ctx context.Context, id string) (*models.Society, error)
	List(ctx context.Context, offset, limit int) ([]*models.Society, int64, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// AssignmentRepository defines society role assignment repository interface
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.SocietyRoleAssignment) error
	GetByID(ctx context.Context, id string) (*models.SocietyRoleAssignment, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]*models.SocietyRoleAssignment, error)
	ListActiveBySociety(ctx context.Context, societyID string) ([]*models.SocietyRoleAssignment, error)
	ListBySociety(ctx context.Context, societyID string) ([]*models.SocietyRoleAssignment, error)
	DeactivateActive(ctx context.Context, societyID, role string, at time.Time) (int64, error)
	DeactivateActiveByUserID(ctx context.Context, userID string, at time.Time) (int64, error)
	Deactivate(ctx context.Context, id string, at time.Time) error
	CountActive(ctx context.Context, societyID, role string) (int64, error)
}
