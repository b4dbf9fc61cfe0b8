package repositories

import (
	"context"

	"aquora-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByMobileNumber gets a user by mobile number
func (r *userRepository) GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("mobile_number = ?", mobileNumber).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByMobileNumber checks if a mobile number is registered
func (r *userRepository) ExistsByMobileNumber(ctx context.Context, mobileNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("mobile_number = ?", mobileNumber).Count(&count).Error
	return count > 0, err
}

// BindSociety sets the user's society
func (r *userRepository) BindSociety(ctx context.Context, userID, societyID string, updatedBy *string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"society_id": societyID,
			"updated_by": updatedBy,
		}).Error
}

// ListBySociety lists a society's users ordered by name; role filters when non-empty
func (r *userRepository) ListBySociety(ctx context.Context, societyID string, role string, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{}).Where("society_id = ?", societyID)
		if role != "" {
			q = q.Where("role = ?", role)
		}
		return q
	}

	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scope().Order("full_name ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
