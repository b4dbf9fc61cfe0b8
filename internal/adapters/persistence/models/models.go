package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Identity
// ============================================================

// User represents users table
type User struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	MobileNumber      string    `gorm:"uniqueIndex;size:20;not null" json:"mobileNumber"`
	FullName          string    `gorm:"size:150;not null" json:"fullName"`
	PasswordHash      string    `gorm:"size:255;not null" json:"-"`
	Role              string    `gorm:"size:20;not null;index" json:"role"`
	PreferredLanguage string    `gorm:"size:2;not null;default:EN" json:"preferredLanguage"`
	IsActive          bool      `gorm:"not null;default:true" json:"isActive"`
	SocietyID         *string   `gorm:"size:36;index" json:"societyId"`
	CreatedBy         *string   `gorm:"size:36" json:"createdBy"`
	UpdatedBy         *string   `gorm:"size:36" json:"updatedBy"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser is the user projection returned to clients
type PublicUser struct {
	ID                string    `json:"id"`
	MobileNumber      string    `json:"mobileNumber"`
	FullName          string    `json:"fullName"`
	Role              string    `json:"role"`
	PreferredLanguage string    `json:"preferredLanguage"`
	IsActive          bool      `json:"isActive"`
	SocietyID         *string   `json:"societyId"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (u *User) ToPublic() *PublicUser {
	return &PublicUser{
		ID:                u.ID,
		MobileNumber:      u.MobileNumber,
		FullName:          u.FullName,
		Role:              u.Role,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
		SocietyID:         u.SocietyID,
		CreatedAt:         u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table. One row per link of a
// rotation chain; rows are only ever revoked, never rewritten.
type RefreshToken struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	UserID            string     `gorm:"size:36;index;not null" json:"userId"`
	TokenHash         string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expiresAt"`
	IPAddress         *string    `gorm:"size:64" json:"ipAddress"`
	UserAgent         *string    `gorm:"size:512" json:"userAgent"`
	RevokedAt         *time.Time `gorm:"index" json:"revokedAt"`
	ReplacedByTokenID *string    `gorm:"size:36" json:"replacedByTokenId"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	return nil
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpiredAt(now time.Time) bool {
	return !rt.ExpiresAt.After(now)
}

// IsLiveAt reports whether the token can still be used for a refresh
func (rt *RefreshToken) IsLiveAt(now time.Time) bool {
	return !rt.IsRevoked() && !rt.IsExpiredAt(now)
}

// ============================================================
// Societies
// ============================================================

// Society represents societies table
type Society struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Name              string    `gorm:"size:200;not null" json:"name"`
	Address           *string   `gorm:"size:500" json:"address"`
	WaterBoardRegNo   string    `gorm:"size:100;not null" json:"waterBoardRegNo"`
	IsActive          bool      `gorm:"not null;default:true" json:"isActive"`
	BillingSchemeJSON string    `gorm:"type:text;not null" json:"-"`
	BillingDayOfMonth *int      `json:"billingDayOfMonth"`
	DueDays           *int      `json:"dueDays"`
	CreatedBy         *string   `gorm:"size:36" json:"createdBy"`
	UpdatedBy         *string   `gorm:"size:36" json:"updatedBy"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Society) TableName() string {
	return "societies"
}

func (s *Society) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SocietyRoleAssignment represents society_role_assignments table.
// Rows are deactivated, never deleted, so the history stays auditable.
type SocietyRoleAssignment struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SocietyID    string     `gorm:"size:36;not null;index:idx_assignment_society_role" json:"societyId"`
	UserID       string     `gorm:"size:36;not null;index" json:"userId"`
	Role         string     `gorm:"size:20;not null;index:idx_assignment_society_role" json:"role"`
	IsActive     bool       `gorm:"not null;default:true;index" json:"isActive"`
	AssignedAt   time.Time  `gorm:"not null;index" json:"assignedAt"`
	UnassignedAt *time.Time `json:"unassignedAt"`
	CreatedBy    *string    `gorm:"size:36" json:"createdBy"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (SocietyRoleAssignment) TableName() string {
	return "society_role_assignments"
}

func (a *SocietyRoleAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Society{},
		&SocietyRoleAssignment{},
		&RefreshToken{},
	)
}
