package config

import (
	"context"
	"errors"
	"log/slog"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db     *gorm.DB
	hasher *password.Hasher
	cfg    SeedConfig
	logger *slog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, hasher *password.Hasher, cfg SeedConfig, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, hasher: hasher, cfg: cfg, logger: logger}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	return s.seedSuperAdmin(ctx)
}

// seedSuperAdmin creates the bootstrap super admin from SEED_SUPER_ADMIN_*.
// It does nothing when unset or when the mobile number is already registered.
func (s *Seeder) seedSuperAdmin(ctx context.Context) error {
	if s.cfg.MobileNumber == "" {
		return nil
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("mobile_number = ?", s.cfg.MobileNumber).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := s.hasher.Hash(s.cfg.Password)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return domain.NewValidation("SEED_SUPER_ADMIN_PASSWORD is too long", map[string]string{"password": "maxbytes=72"})
	}
	if err != nil {
		return err
	}

	admin := &models.User{
		MobileNumber:      s.cfg.MobileNumber,
		FullName:          s.cfg.FullName,
		PasswordHash:      hashedPassword,
		Role:              string(domain.RoleSuperAdmin),
		PreferredLanguage: string(domain.LanguageEnglish),
		IsActive:          true,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "super admin seeded", "user_id", admin.ID)
	return nil
}
