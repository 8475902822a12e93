// Package identity turns a bearer credential into an optional Identity.
// Every failure is absorbed: the caller sees "no identity" and the reason is logged.
package identity

import (
	"context"
	"log/slog"
	"strings"

	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

type Resolver struct {
	tokens TokenValidator
	users  UserLookup
	logger *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithUserLookup makes the resolver load the user record for every token so
// that deactivated users and role changes take effect before token expiry.
func WithUserLookup(users UserLookup) Option {
	return func(r *Resolver) {
		r.users = users
	}
}

func New(tokens TokenValidator, opts ...Option) *Resolver {
	r := &Resolver{
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BearerToken extracts the credential from an Authorization header value.
// Returns "" when the header is absent or uses another scheme.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolve returns the identity behind credential, or nil when the credential
// is empty, invalid or expired, or names a missing or inactive user.
func (r *Resolver) Resolve(ctx context.Context, credential string) *models.Identity {
	if credential == "" || r.tokens == nil {
		return nil
	}

	claims, err := r.tokens.ValidateToken(credential)
	if err != nil {
		r.logger.DebugContext(ctx, "bearer credential rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	if r.users == nil {
		return &models.Identity{ID: claims.Subject, Role: models.Role(claims.Role), Active: true}
	}

	ident, err := r.users.FindIdentity(ctx, claims.Subject)
	if err != nil {
		level := slog.LevelWarn
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			level = slog.LevelDebug
		}
		r.logger.Log(ctx, level, "identity lookup failed",
			"error", err,
			"user_id", claims.Subject,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if ident == nil || !ident.Active {
		r.logger.DebugContext(ctx, "inactive user presented a valid token",
			"user_id", claims.Subject,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	return ident
}
