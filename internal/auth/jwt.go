package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

// ErrInvalidToken is returned for any credential that fails verification.
// Callers must not reveal the underlying reason to clients.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims carried by support staff credentials.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the principal attached to a connection.
func (c *Claims) Identity() core.Identity {
	subject := c.UserID
	if subject == "" {
		subject = c.Subject
	}
	return core.Identity{
		Subject: subject,
		Email:   c.Email,
		Name:    c.Name,
		Role:    c.Role,
	}
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a signed token for the given identity.
func GenerateToken(cfg *JWTConfig, identity core.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: identity.Subject,
		Email:  identity.Email,
		Name:   identity.Name,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
// Signature, expiry, issuer and audience failures all wrap ErrInvalidToken.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	// Validate issuer and audience if configured
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}
	if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}

	return claims, nil
}
