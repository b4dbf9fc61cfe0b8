package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"aquora-api/internal/pkg/password"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string
	Port           int
	TrustProxy     bool
	TrustedProxies []string
	APIPrefix      string
	CORSOrigins    []string
	Database       DatabaseConfig
	Auth           AuthConfig
	Cookie         CookieConfig
	Redis          RedisConfig
	AMQP           AMQPConfig
	Log            LogConfig
	RateLimit      RateLimitConfig
	Housekeeping   HousekeepingConfig
	Seed           SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string // mysql or postgres
	URL    string
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	AccessTokenSecret   string
	AccessTokenTTL      time.Duration
	RefreshTokenTTLDays int
	BcryptCost          int
}

// RefreshTokenTTL returns the refresh token lifetime
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

// CookieConfig holds refresh token cookie settings
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string // Strict, Lax or None
	Domain   string
	Path     string
}

// RedisConfig holds the optional Redis connection; empty URL disables Redis
type RedisConfig struct {
	URL string
}

// AMQPConfig holds the optional RabbitMQ connection; empty URL disables publishing
type AMQPConfig struct {
	URL         string
	Exchange    string
	DialTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds per-IP request limits per minute
type RateLimitConfig struct {
	Max     int
	AuthMax int
}

// HousekeepingConfig controls refresh token pruning
type HousekeepingConfig struct {
	RetentionDays int
	CleanupCron   string
}

// SeedConfig holds the optional bootstrap super admin
type SeedConfig struct {
	MobileNumber string
	Password     string
	FullName     string
}

// defaultTrustedProxies covers loopback and private networks
const defaultTrustedProxies = "127.0.0.1,::1,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return Parse(os.Getenv)
}

// Parse builds and validates a Config from getenv. Every invalid value is
// reported in the returned error.
func Parse(getenv func(string) string) (*Config, error) {
	p := &parser{getenv: getenv}

	cfg := &Config{
		AppMode:        strings.TrimSpace(p.str("APP_MODE", "dev")),
		Port:           p.intRange("PORT", 4000, 1, 65535),
		TrustProxy:     p.boolean("TRUST_PROXY", false),
		TrustedProxies: splitList(p.str("TRUSTED_PROXIES", defaultTrustedProxies)),
		APIPrefix:      p.str("API_PREFIX", "/api/v1"),
		CORSOrigins:    splitList(p.str("CORS_ORIGIN", "http://localhost:3000")),
		Database: DatabaseConfig{
			Driver: strings.ToLower(p.str("DB_DRIVER", "mysql")),
			URL:    p.str("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			AccessTokenSecret:   p.str("AUTH_ACCESS_TOKEN_SECRET", ""),
			AccessTokenTTL:      p.duration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTLDays: p.intRange("AUTH_REFRESH_TOKEN_TTL_DAYS", 30, 1, 365),
			BcryptCost:          p.intRange("BCRYPT_COST", password.DefaultCost, password.MinCost, password.MaxCost),
		},
		Cookie: CookieConfig{
			Name:     p.str("AUTH_REFRESH_TOKEN_COOKIE_NAME", "refresh_token"),
			Secure:   p.boolean("AUTH_REFRESH_TOKEN_COOKIE_SECURE", false),
			SameSite: p.sameSite("AUTH_REFRESH_TOKEN_COOKIE_SAME_SITE", "strict"),
			Domain:   p.str("AUTH_REFRESH_TOKEN_COOKIE_DOMAIN", ""),
		},
		Redis: RedisConfig{
			URL: p.str("REDIS_URL", ""),
		},
		AMQP: AMQPConfig{
			URL:         p.str("AMQP_URL", ""),
			Exchange:    p.str("AMQP_EXCHANGE", "aquora.events"),
			DialTimeout: p.duration("AMQP_DIAL_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  p.str("LOG_LEVEL", "info"),
			Format: p.str("LOG_FORMAT", ""),
		},
		RateLimit: RateLimitConfig{
			Max:     p.intRange("RATE_LIMIT_MAX", 100, 1, 100000),
			AuthMax: p.intRange("AUTH_RATE_LIMIT_MAX", 10, 1, 10000),
		},
		Housekeeping: HousekeepingConfig{
			RetentionDays: p.intRange("REFRESH_TOKEN_RETENTION_DAYS", 90, 0, 3650),
			CleanupCron:   p.str("REFRESH_TOKEN_CLEANUP_CRON", "@daily"),
		},
		Seed: SeedConfig{
			MobileNumber: p.str("SEED_SUPER_ADMIN_MOBILE", ""),
			Password:     p.str("SEED_SUPER_ADMIN_PASSWORD", ""),
			FullName:     p.str("SEED_SUPER_ADMIN_NAME", "Super Admin"),
		},
	}
	cfg.Cookie.Path = p.str("AUTH_REFRESH_TOKEN_COOKIE_PATH", cfg.APIPrefix)

	cfg.validate(p)

	if len(p.problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(p.problems, "; "))
	}
	return cfg, nil
}

func (c *Config) validate(p *parser) {
	if c.AppMode != "dev" && c.AppMode != "prod" {
		p.fail("APP_MODE must be 'dev' or 'prod', got %q", c.AppMode)
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.URL != "" {
			if _, err := mysqldriver.ParseDSN(c.Database.URL); err != nil {
				p.fail("DATABASE_URL is not a valid mysql DSN: %v", err)
			}
		}
	case "postgres":
	default:
		p.fail("DB_DRIVER must be 'mysql' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		p.fail("DATABASE_URL is required")
	}

	if len(c.Auth.AccessTokenSecret) < 32 {
		p.fail("AUTH_ACCESS_TOKEN_SECRET must be at least 32 characters")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		p.fail("AUTH_ACCESS_TOKEN_TTL must be positive")
	}

	if c.AMQP.DialTimeout <= 0 {
		p.fail("AMQP_DIAL_TIMEOUT must be positive")
	}

	if c.Cookie.SameSite == "None" && !c.Cookie.Secure {
		p.fail("AUTH_REFRESH_TOKEN_COOKIE_SAME_SITE=none requires AUTH_REFRESH_TOKEN_COOKIE_SECURE=true")
	}

	if c.Housekeeping.CleanupCron != "" {
		if _, err := cron.ParseStandard(c.Housekeeping.CleanupCron); err != nil {
			p.fail("REFRESH_TOKEN_CLEANUP_CRON is invalid: %v", err)
		}
	}

	if c.TrustProxy {
		for _, proxy := range c.TrustedProxies {
			if net.ParseIP(proxy) == nil {
				if _, _, err := net.ParseCIDR(proxy); err != nil {
					p.fail("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
				}
			}
		}
	}

	if (c.Seed.MobileNumber == "") != (c.Seed.Password == "") {
		p.fail("SEED_SUPER_ADMIN_MOBILE and SEED_SUPER_ADMIN_PASSWORD must be set together")
	}
	if len(c.Seed.Password) > password.MaxPasswordBytes {
		p.fail("SEED_SUPER_ADMIN_PASSWORD must be at most %d bytes", password.MaxPasswordBytes)
	}
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// AllowsAnyOrigin reports whether CORS is open to every origin
func (c *Config) AllowsAnyOrigin() bool {
	return len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == "*"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

type parser struct {
	getenv   func(string) string
	problems []string
}

func (p *parser) fail(format string, args ...any) {
	p.problems = append(p.problems, fmt.Sprintf(format, args...))
}

// str gets environment variable with default value
func (p *parser) str(key, defaultValue string) string {
	if value := strings.TrimSpace(p.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (p *parser) intRange(key string, defaultValue, min, max int) int {
	raw := p.str(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail("%s must be an integer, got %q", key, raw)
		return defaultValue
	}
	if n < min || n > max {
		p.fail("%s must be between %d and %d, got %d", key, min, max, n)
	}
	return n
}

func (p *parser) boolean(key string, defaultValue bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail("%s must be a boolean, got %q", key, raw)
		return defaultValue
	}
	return b
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail("%s must be a duration like 15m, got %q", key, raw)
		return defaultValue
	}
	return d
}

// sameSite normalizes strict|lax|none to the cookie attribute spelling
func (p *parser) sameSite(key, defaultValue string) string {
	raw := strings.ToLower(p.str(key, defaultValue))
	switch raw {
	case "strict":
		return "Strict"
	case "lax":
		return "Lax"
	case "none":
		return "None"
	}
	p.fail("%s must be strict, lax or none, got %q", key, raw)
	return "Strict"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
