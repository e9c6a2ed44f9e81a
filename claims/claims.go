package claims

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/finsolve/knowledge-gateway/models"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")

	// ErrTokenExpired is returned for expired tokens. An expired token
	// resolves to no role, never a cached prior one.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed or badly signed tokens
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the JWT claim set the identity provider issues for this service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the validated caller identity the request pipeline consumes.
type Identity struct {
	Subject   string
	Role      models.RoleID
	ExpiresAt time.Time
}

// Validator verifies tokens with a shared HMAC key.
type Validator struct {
	key []byte
}

// NewValidator creates a validator over the signing key.
func NewValidator(key []byte) *Validator {
	return &Validator{key: key}
}

// Validate parses and verifies a token, returning the caller identity.
// Expired, malformed or badly signed tokens all fail; the caller then has
// no role at all.
func (v *Validator) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if c.Role == "" {
		return nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	identity := &Identity{
		Subject: c.Subject,
		Role:    models.RoleID(c.Role),
	}
	if c.ExpiresAt != nil {
		identity.ExpiresAt = c.ExpiresAt.Time
	}
	return identity, nil
}

// Issue mints a token for the identity. Used by tests and local tooling;
// production token issuance belongs to the identity provider.
func (v *Validator) Issue(subject string, role models.RoleID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.key)
}
