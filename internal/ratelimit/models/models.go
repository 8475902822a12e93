package models

import (
	"time"
)

// Role is the closed set of roles carried by an Identity. Unknown values are
// preserved as-is and classify as authenticated.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RolePremium Role = "premium"
)

// UserType is the caller tier used to pick a quota table.
type UserType string

const (
	UserTypeAnonymous     UserType = "anonymous"
	UserTypeAuthenticated UserType = "authenticated"
	UserTypePremium       UserType = "premium"
)

func (t UserType) IsValid() bool {
	switch t {
	case UserTypeAnonymous, UserTypeAuthenticated, UserTypePremium:
		return true
	}
	return false
}

// EndpointCategory groups routes that share a quota.
type EndpointCategory string

const (
	CategoryHealth       EndpointCategory = "health"
	CategoryAuthLogin    EndpointCategory = "auth_login"
	CategoryAuthRegister EndpointCategory = "auth_register"
	CategoryAuth         EndpointCategory = "auth"
	CategoryAPIRead      EndpointCategory = "api_read"
	CategoryAPIWrite     EndpointCategory = "api_write"
	// CategoryDefault is both the catch-all category and the per-user-type
	// fallback slot in quota tables.
	CategoryDefault EndpointCategory = "default"
)

func (c EndpointCategory) IsValid() bool {
	switch c {
	case CategoryHealth, CategoryAuthLogin, CategoryAuthRegister, CategoryAuth,
		CategoryAPIRead, CategoryAPIWrite, CategoryDefault:
		return true
	}
	return false
}

// Identity is the read-only view of a user the limiter needs.
type Identity struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// RequestContext describes one inbound request. It is built per request and
// never shared.
type RequestContext struct {
	Method        string
	Path          string
	RemoteAddress string
	UserAgent     string
	Identity      *Identity
}

// Classification is derived deterministically from a RequestContext.
type Classification struct {
	UserType      UserType         `json:"user_type"`
	Category      EndpointCategory `json:"endpoint_category"`
	BucketKey     BucketKey        `json:"bucket_key"`
	RemoteAddress string           `json:"remote_address"`
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool `json:"allowed"`
	// Unbounded means no counter was consulted (disabled limiter or whitelisted IP).
	Unbounded bool `json:"unbounded,omitempty"`
	// Degraded means the counter store failed and the failure policy decided.
	Degraded   bool      `json:"degraded,omitempty"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
	ResetAt    time.Time `json:"reset_at"`
	Rule       string    `json:"rule,omitempty"`
}

// CounterResult is what a counter store reports for one atomic admit.
type CounterResult struct {
	Allowed bool
	// Count is the counter value after the call; it never exceeds the limit.
	Count int
	// TTL is the time left in the current window.
	TTL time.Duration
}

// KeyCount pairs a bucket key with the number of denials recorded for it.
type KeyCount struct {
	BucketKey string `json:"bucket_key"`
	Count     int    `json:"count"`
}

// Stats is a point-in-time snapshot of the counter store and hit log.
type Stats struct {
	TotalTrackedKeys int            `json:"total_tracked_keys"`
	ByUserType       map[string]int `json:"by_user_type"`
	ByEndpoint       map[string]int `json:"by_endpoint"`
	TopLimitedKeys   []KeyCount     `json:"top_limited_keys"`
	RecentLimits     []HitRecord    `json:"recent_limits"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// HitRecord is one audit entry written on a deny decision.
type HitRecord struct {
	Timestamp     time.Time        `json:"timestamp"`
	BucketKey     string           `json:"bucket_key"`
	UserType      UserType         `json:"user_type"`
	Endpoint      string           `json:"endpoint"`
	Method        string           `json:"method"`
	Category      EndpointCategory `json:"endpoint_category"`
	Rule          string           `json:"rate_limit"`
	RemoteAddress string           `json:"ip_address"`
	UserAgent     string           `json:"user_agent"`
	Browser       string           `json:"browser,omitempty"`
}
