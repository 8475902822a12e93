package identity

import (
	"context"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/ratelimit/models"
)

// TokenValidator verifies a bearer credential and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*jwttoken.AccessTokenClaims, error)
}

// UserLookup loads the current identity record for a user id. A missing user
// is reported as a CodeNotFound domain error.
type UserLookup interface {
	FindIdentity(ctx context.Context, userID string) (*models.Identity, error)
}
