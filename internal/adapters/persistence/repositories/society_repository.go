package repositories

import (
	"context"

	"aquora-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// societyRepository implements SocietyRepository interface
type societyRepository struct {
	db *gorm.DB
}

// NewSocietyRepository creates a new society repository
func NewSocietyRepository(db *gorm.DB) SocietyRepository {
	return &societyRepository{db: db}
}

func (r *societyRepository) Create(ctx context.Context, society *models.Society) error {
	return r.db.WithContext(ctx).Create(society).Error
}

func (r *societyRepository) GetByID(ctx context.Context, id string) (*models.Society, error) {
	var society models.Society
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&society).Error
	if err != nil {
		return nil, err
	}
	return &society, nil
}

// List lists societies newest first
func (r *societyRepository) List(ctx context.Context, offset, limit int) ([]*models.Society, int64, error) {
	var societies []*models.Society
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Society{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&societies).Error; err != nil {
		return nil, 0, err
	}

	return societies, total, nil
}

// Update applies a partial update keyed by column name
func (r *societyRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Society{}).
		Where("id = ?", id).
		Updates(fields).Error
}
