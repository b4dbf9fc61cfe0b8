// Package testutil provides a migrated SQLite database, configuration and
// fixtures for package tests.
package testutil

import (
	"os"
	"testing"
	"time"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/pkg/password"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Secret is a valid access token signing secret
const Secret = "test-secret-test-secret-test-secret!"

// Password is the password of every user created by NewUser
const Password = "password123"

// DB opens a migrated SQLite database in a temp file that is removed when
// the test ends. One open connection serializes concurrent transactions.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	f, err := os.CreateTemp("", "aquora-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

// Config returns a valid development configuration
func Config(t *testing.T) *config.Config {
	t.Helper()

	env := map[string]string{
		"DATABASE_URL":             "file::memory:",
		"DB_DRIVER":                "postgres",
		"AUTH_ACCESS_TOKEN_SECRET": Secret,
		"BCRYPT_COST":              "8",
		"AUTH_RATE_LIMIT_MAX":      "1000",
	}
	cfg, err := config.Parse(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("parsing test config: %v", err)
	}
	return cfg
}

// Hasher returns a bcrypt hasher at the minimum cost
func Hasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.MinCost)
	if err != nil {
		t.Fatalf("creating hasher: %v", err)
	}
	return h
}

// NewUser inserts an active user with Password as its password
func NewUser(t *testing.T, db *gorm.DB, mobile string, role domain.Role, societyID *string) *models.User {
	t.Helper()

	hash, err := Hasher(t).Hash(Password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &models.User{
		MobileNumber:      mobile,
		FullName:          "User " + mobile,
		PasswordHash:      hash,
		Role:              string(role),
		PreferredLanguage: string(domain.LanguageEnglish),
		IsActive:          true,
		SocietyID:         societyID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

// Deactivate marks a user inactive. Creating with IsActive false would be
// replaced by the column default.
func Deactivate(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivating user: %v", err)
	}
	user.IsActive = false
}

// NewSociety inserts an active society
func NewSociety(t *testing.T, db *gorm.DB, name string) *models.Society {
	t.Helper()

	society := &models.Society{
		Name:              name,
		WaterBoardRegNo:   "WB-" + name,
		IsActive:          true,
		BillingSchemeJSON: "{}",
	}
	if err := db.Create(society).Error; err != nil {
		t.Fatalf("creating society: %v", err)
	}
	return society
}

// Assign inserts an active assignment directly, bypassing the service rules
func Assign(t *testing.T, db *gorm.DB, societyID, userID string, role domain.Role, at time.Time) *models.SocietyRoleAssignment {
	t.Helper()

	a := &models.SocietyRoleAssignment{
		SocietyID:  societyID,
		UserID:     userID,
		Role:       string(role),
		IsActive:   true,
		AssignedAt: at,
	}
	if err := db.Omit("User").Create(a).Error; err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	return a
}
