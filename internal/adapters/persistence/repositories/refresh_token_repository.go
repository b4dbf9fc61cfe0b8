package repositories

import (
	"context"
	"errors"
	"time"

	"aquora-api/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxChainWalk bounds RevokeChain so a corrupted chain cannot loop forever
const maxChainWalk = 10000

// refreshTokenRepository implements RefreshTokenRepository interface
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create creates a new refresh token
func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByTokenHash gets a refresh token by its hash, revoked or not
func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Revoke revokes a live refresh token. It reports false when the row was
// already revoked or does not exist.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, revokedAt time.Time, replacedByTokenID *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Updates(map[string]interface{}{
			"revoked_at":           revokedAt,
			"replaced_by_token_id": replacedByTokenID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Rotate revokes oldID in favour of next and stores next, in one transaction.
// The conditional revoke is what lets only one of two concurrent rotations of
// the same token commit; the loser gets ErrTokenAlreadyRevoked.
func (r *refreshTokenRepository) Rotate(ctx context.Context, oldID string, next *models.RefreshToken, revokedAt time.Time) error {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ?", oldID).
			Where("revoked_at IS NULL").
			Updates(map[string]interface{}{
				"revoked_at":           revokedAt,
				"replaced_by_token_id": next.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrTokenAlreadyRevoked
		}

		return tx.Create(next).Error
	})
}

// RevokeChain follows replaced_by_token_id from fromID and revokes every
// successor that is still live. It returns how many rows it revoked.
func (r *refreshTokenRepository) RevokeChain(ctx context.Context, fromID string, revokedAt time.Time) (int64, error) {
	var revoked int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[string]bool{fromID: true}
		current := fromID

		for i := 0; i < maxChainWalk; i++ {
			var link models.RefreshToken
			if err := tx.Where("id = ?", current).First(&link).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			if link.ReplacedByTokenID == nil || seen[*link.ReplacedByTokenID] {
				return nil
			}

			next := *link.ReplacedByTokenID
			res := tx.Model(&models.RefreshToken{}).
				Where("id = ?", next).
				Where("revoked_at IS NULL").
				Update("revoked_at", revokedAt)
			if res.Error != nil {
				return res.Error
			}
			revoked += res.RowsAffected

			seen[next] = true
			current = next
		}
		return nil
	})

	return revoked, err
}

// RevokeAllByUserID revokes all live refresh tokens for a user
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt)
	return res.RowsAffected, res.Error
}

// DeleteExpiredBefore deletes tokens that expired before cutoff (cleanup job)
func (r *refreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// CountActiveByUserID counts live tokens for a user
func (r *refreshTokenRepository) CountActiveByUserID(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Count(&count).Error
	return count, err
}
