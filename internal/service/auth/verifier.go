// Package auth is the boundary to the external credential issuer. The
// issuer mints bearer tokens; this package only verifies them and extracts
// the caller identity.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the verified caller identity extracted from a bearer credential.
type Identity struct {
	// UserID is the unique identifier of the authenticated user.
	UserID uuid.UUID

	// DisplayName is the user's display name as asserted by the issuer.
	DisplayName string
}

// TokenVerifier verifies bearer credentials. Implementations must reject
// expired, malformed, or foreign tokens; the connection gate treats any
// verification failure as fatal for the connection.
type TokenVerifier interface {
	// VerifyToken validates the provided token string and extracts the
	// caller identity. Returns ErrExpiredToken or ErrInvalidToken on
	// failure.
	VerifyToken(ctx context.Context, tokenString string) (*Identity, error)
}
