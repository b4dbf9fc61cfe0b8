package repositories

import (
	"context"
	"time"

	"aquora-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// assignmentRepository implements AssignmentRepository interface
type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new society role assignment repository
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.SocietyRoleAssignment) error {
	return r.db.WithContext(ctx).Omit("User").Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.SocietyRoleAssignment, error) {
	var assignment models.SocietyRoleAssignment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListActiveByUserID returns the user's active assignments, most recent first
func (r *assignmentRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*models.SocietyRoleAssignment, error) {
	var assignments []*models.SocietyRoleAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}

// ListActiveBySociety returns active officers with their users
func (r *assignmentRepository) ListActiveBySociety(ctx context.Context, societyID string) ([]*models.SocietyRoleAssignment, error) {
	var assignments []*models.SocietyRoleAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("society_id = ?", societyID).
		Where("is_active = ?", true).
		Order("role ASC").
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}

// ListBySociety returns every assignment of the society, most recent first
func (r *assignmentRepository) ListBySociety(ctx context.Context, societyID string) ([]*models.SocietyRoleAssignment, error) {
	var assignments []*models.SocietyRoleAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("society_id = ?", societyID).
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}

// DeactivateActive ends every active (society, role) assignment
func (r *assignmentRepository) DeactivateActive(ctx context.Context, societyID, role string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SocietyRoleAssignment{}).
		Where("society_id = ?", societyID).
		Where("role = ?", role).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"unassigned_at": at,
		})
	return res.RowsAffected, res.Error
}

// DeactivateActiveByUserID ends every active assignment the user holds
func (r *assignmentRepository) DeactivateActiveByUserID(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SocietyRoleAssignment{}).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"unassigned_at": at,
		})
	return res.RowsAffected, res.Error
}

// Deactivate ends one assignment; already inactive rows keep their unassigned_at
func (r *assignmentRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SocietyRoleAssignment{}).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"unassigned_at": at,
		}).Error
}

func (r *assignmentRepository) CountActive(ctx context.Context, societyID, role string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SocietyRoleAssignment{}).
		Where("society_id = ?", societyID).
		Where("role = ?", role).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
