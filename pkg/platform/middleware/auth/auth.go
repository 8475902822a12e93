// Package auth guards routes on the principal attached by the rate limit
// middleware after it resolved the bearer credential.
package auth

import (
	"log/slog"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// RequireAuth rejects requests without an authenticated principal.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger)
}

// RequireRole rejects requests whose principal is missing (401) or whose role
// is not in roles (403). With no roles, any authenticated principal passes.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.GetPrincipal(ctx)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing or invalid token",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[principal.Role]; !ok {
					logger.WarnContext(ctx, "forbidden - insufficient role",
						"user_id", principal.UserID,
						"role", principal.Role,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
