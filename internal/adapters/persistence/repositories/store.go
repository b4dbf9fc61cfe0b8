package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one *gorm.DB so a service can run
// several of them inside a single transaction.
type Store struct {
	db            *gorm.DB
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
	Societies     SocietyRepository
	Assignments   AssignmentRepository
}

// NewStore creates repositories bound to db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Societies:     NewSocietyRepository(db),
		Assignments:   NewAssignmentRepository(db),
	}
}

// Transaction runs fn with a Store bound to one transaction. Returning an
// error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
