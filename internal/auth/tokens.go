package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer         = "dust-server"
	tokenAudience       = "dust-client"
	defaultTokenExpiry  = 24 * time.Hour
	minSigningKeyLength = 32
)

// Claims is the payload of a session bearer token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HMAC-signed session bearer tokens.
type TokenService struct {
	signingKey []byte
	expiry     time.Duration
}

// NewTokenService builds a TokenService from the server's configured JWT
// secret. The key must be at least 32 bytes; this is also enforced by
// config.Config.Validate, but checked again here defensively.
func NewTokenService(signingKey []byte, expiry time.Duration) (*TokenService, error) {
	if len(signingKey) < minSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minSigningKeyLength)
	}
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &TokenService{signingKey: signingKey, expiry: expiry}, nil
}

// Issue creates a signed session token for userID.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// Verify validates signature, expiry, issuer, and audience, returning the
// parsed claims on success.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Expiry returns the configured session token lifetime.
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}
