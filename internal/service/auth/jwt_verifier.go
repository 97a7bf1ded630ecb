package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/config"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
)

// hmacTokenVerifier verifies tokens signed with HMAC-SHA256 using the shared
// secret the external issuer signs with.
type hmacTokenVerifier struct {
	signingKey []byte
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration    // Allowed time difference to handle clock drift
}

// jwtCustomClaims defines the structure of the JWT claims the issuer mints.
type jwtCustomClaims struct {
	UserID      uuid.UUID `json:"uid"`
	DisplayName string    `json:"name"`
	jwt.RegisteredClaims
}

// Ensure hmacTokenVerifier implements TokenVerifier interface
var _ TokenVerifier = (*hmacTokenVerifier)(nil)

// NewTokenVerifier creates a TokenVerifier for HMAC-SHA256 signed tokens.
func NewTokenVerifier(cfg config.AuthConfig) (TokenVerifier, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacTokenVerifier{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// VerifyToken validates a bearer token and returns the caller identity.
func (v *hmacTokenVerifier) VerifyToken(ctx context.Context, tokenString string) (*Identity, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := v.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		}
		log.Debug("token validation failed", "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == uuid.Nil {
		log.Debug("token carries no user ID")
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
	}, nil
}
