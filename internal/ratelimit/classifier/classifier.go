// Package classifier derives the quota bucket for a request. It performs no I/O.
package classifier

import (
	"net/http"
	"strings"

	"gatekeeper/internal/ratelimit/models"
)

var healthPaths = map[string]struct{}{
	"/":             {},
	"/health":       {},
	"/docs":         {},
	"/redoc":        {},
	"/openapi.json": {},
}

// Classify maps a request to its user type, endpoint category and bucket key.
func Classify(rc models.RequestContext) models.Classification {
	c := models.Classification{
		UserType:      UserType(rc.Identity),
		Category:      Category(rc.Method, rc.Path),
		RemoteAddress: rc.RemoteAddress,
	}
	if rc.Identity != nil {
		c.BucketKey = models.NewUserBucketKey(rc.Identity.ID)
	} else {
		c.BucketKey = models.NewIPBucketKey(rc.RemoteAddress)
	}
	return c
}

// UserType returns anonymous only when there is no identity. Roles outside the
// known set count as authenticated.
func UserType(ident *models.Identity) models.UserType {
	if ident == nil {
		return models.UserTypeAnonymous
	}
	switch ident.Role {
	case models.RoleAdmin, models.RolePremium:
		return models.UserTypePremium
	default:
		return models.UserTypeAuthenticated
	}
}

// Category applies the routing rules in priority order: health, auth, then the
// /api/ read/write split.
func Category(method, path string) models.EndpointCategory {
	if _, ok := healthPaths[path]; ok {
		return models.CategoryHealth
	}

	if strings.Contains(path, "/auth/") {
		switch {
		case strings.Contains(path, "login"):
			return models.CategoryAuthLogin
		case strings.Contains(path, "register"), strings.Contains(path, "signup"):
			return models.CategoryAuthRegister
		default:
			return models.CategoryAuth
		}
	}

	if strings.HasPrefix(path, "/api/") {
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return models.CategoryAPIRead
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			return models.CategoryAPIWrite
		}
	}

	return models.CategoryDefault
}
