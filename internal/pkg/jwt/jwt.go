package jwt

import (
	"errors"
	"fmt"
	"time"

	"aquora-api/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted signing secret size in bytes
const MinSecretLength = 32

// Issuer is written to and required in every access token
const Issuer = "aquora-api"

var (
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired also matches ErrTokenInvalid
	ErrTokenExpired = fmt.Errorf("%w: token has expired", ErrTokenInvalid)
)

// Claims represents the access token claims
type Claims struct {
	MobileNumber  string  `json:"mobileNumber"`
	EffectiveRole string  `json:"effectiveRole"`
	SocietyID     *string `json:"societyId"`
	jwt.RegisteredClaims
}

// Identity is what an access token asserts about its bearer
type Identity struct {
	UserID       string
	MobileNumber string
	Role         domain.Role
	SocietyID    *string
}

// Codec signs and verifies HS256 access tokens
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec. The secret must be at least MinSecretLength bytes.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("access token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", ttl)
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns the access token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign generates a new access token and returns it with its expiry
func (c *Codec) Sign(id Identity) (string, time.Time, error) {
	if id.UserID == "" || id.MobileNumber == "" || !id.Role.Valid() {
		return "", time.Time{}, ErrTokenInvalid
	}

	now := c.now()
	expiresAt := now.Add(c.ttl)
	claims := Claims{
		MobileNumber:  id.MobileNumber,
		EffectiveRole: string(id.Role),
		SocietyID:     id.SocietyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   id.UserID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify validates an access token and returns the identity it carries.
// Tokens with a bad signature, another algorithm, no expiry, or claims outside
// the schema are rejected.
func (c *Codec) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.MobileNumber == "" {
		return nil, ErrTokenInvalid
	}
	role := domain.Role(claims.EffectiveRole)
	if !role.Valid() {
		return nil, ErrTokenInvalid
	}

	return &Identity{
		UserID:       claims.Subject,
		MobileNumber: claims.MobileNumber,
		Role:         role,
		SocietyID:    claims.SocietyID,
	}, nil
}
