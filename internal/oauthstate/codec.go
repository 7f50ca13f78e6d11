// Package oauthstate encodes the opaque state token carried across the
// OAuth redirect round-trip. The token is an HS256 JWT so tampering fails
// closed at decode; the decoded workspace id is still untrusted until
// cross-checked against the requester's own session workspace.
package oauthstate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainErrors "github.com/publora/platform/backend/services/social-service/internal/domain/errors"
)

// Payload is the state carried through the authorization redirect. It
// must never include credentials.
type Payload struct {
	BrandID     uuid.UUID
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Locale      string
}

type stateClaims struct {
	BrandID     string `json:"bid"`
	WorkspaceID string `json:"wid"`
	UserID      string `json:"uid"`
	Locale      string `json:"loc,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies state tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a Codec. ttl bounds how long an issued state token stays
// decodable; zero falls back to ten minutes.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode serializes the payload into a URL-safe signed token.
func (c *Codec) Encode(p Payload) (string, error) {
	if p.BrandID == uuid.Nil || p.WorkspaceID == uuid.Nil || p.UserID == uuid.Nil {
		return "", domainErrors.NewValidationError("state", "brandId, workspaceId and userId are required")
	}
	now := c.now()
	claims := stateClaims{
		BrandID:     p.BrandID.String(),
		WorkspaceID: p.WorkspaceID.String(),
		UserID:      p.UserID.String(),
		Locale:      p.Locale,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token and returns exactly the fields that were
// encoded. Any parse failure, bad signature, expiry or missing required
// field yields ErrInvalidState; a partial payload is never returned.
func (c *Codec) Decode(token string) (Payload, error) {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return Payload{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidState, err)
	}

	brandID, err := uuid.Parse(claims.BrandID)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: missing or malformed brand id", domainErrors.ErrInvalidState)
	}
	workspaceID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: missing or malformed workspace id", domainErrors.ErrInvalidState)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: missing or malformed user id", domainErrors.ErrInvalidState)
	}

	return Payload{
		BrandID:     brandID,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Locale:      claims.Locale,
	}, nil
}
