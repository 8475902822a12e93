package config

import (
	"fmt"
	"maps"
	"net/netip"
	"sort"
	"strings"
	"time"

	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// FailurePolicy decides admission when the counter store cannot answer.
type FailurePolicy string

const (
	// FailOpen admits the request and marks the decision degraded.
	FailOpen FailurePolicy = "open"
	// FailClosed denies the request with a one second retry hint.
	FailClosed FailurePolicy = "closed"
)

func (p FailurePolicy) IsValid() bool {
	return p == FailOpen || p == FailClosed
}

const (
	DefaultStoreTimeout    = 500 * time.Millisecond
	DefaultHitLogCapacity  = 1000
	DefaultHitLogRetention = 24 * time.Hour
	DefaultStatsTopKeys    = 10
)

// Config is the immutable rate limit snapshot built once at startup and
// injected into the quota resolver and limiter. Reloading means building a
// new Config and restarting the components that hold it.
type Config struct {
	Enabled bool
	// Default is the global rule every lookup falls back to.
	Default models.QuotaRule
	// Endpoints is the flat per-category table.
	Endpoints map[models.EndpointCategory]models.QuotaRule
	// UserTypes is the per-user-type table; each may carry a "default" slot.
	UserTypes map[models.UserType]map[models.EndpointCategory]models.QuotaRule

	whitelist map[netip.Addr]struct{}

	FailurePolicy   FailurePolicy
	StoreTimeout    time.Duration
	HitLogCapacity  int
	HitLogRetention time.Duration
	// StatsTopKeys is how many of the most limited bucket keys Stats reports.
	StatsTopKeys int
}

// IsWhitelisted reports whether addr (an IP literal, optionally zoned or
// IPv4-mapped) is exempt from limiting.
func (c *Config) IsWhitelisted(addr string) bool {
	if len(c.whitelist) == 0 {
		return false
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	_, ok := c.whitelist[normalizeAddr(ip)]
	return ok
}

// Whitelist returns the normalized whitelist entries in sorted order.
func (c *Config) Whitelist() []string {
	out := make([]string, 0, len(c.whitelist))
	for addr := range c.whitelist {
		out = append(out, addr.String())
	}
	sort.Strings(out)
	return out
}

// Settings is the serialisable form of the configuration (YAML file and
// built-in defaults). Rules are "N/period" strings.
type Settings struct {
	Enabled         *bool                        `yaml:"enabled"`
	Default         string                       `yaml:"default"`
	Endpoints       map[string]string            `yaml:"endpoints"`
	UserTypes       map[string]map[string]string `yaml:"user_types"`
	Whitelist       []string                     `yaml:"whitelist"`
	FailurePolicy   string                       `yaml:"failure_policy"`
	StoreTimeout    string                       `yaml:"store_timeout"`
	HitLogCapacity  int                          `yaml:"hit_log_capacity"`
	HitLogRetention string                       `yaml:"hit_log_retention"`
	StatsTopKeys    int                          `yaml:"stats_top_keys"`
}

// DefaultSettings returns the built-in quota tables.
func DefaultSettings() Settings {
	enabled := true
	return Settings{
		Enabled: &enabled,
		Default: "100/minute",
		Endpoints: map[string]string{
			"default":       "100/minute",
			"auth_login":    "10/hour",
			"auth_register": "5/hour",
			"api_read":      "1000/hour",
			"api_write":     "200/hour",
			"health":        "1000/minute",
		},
		UserTypes: map[string]map[string]string{
			"anonymous": {
				"default":       "50/hour",
				"auth_login":    "10/hour",
				"auth_register": "3/hour",
			},
			"authenticated": {
				"default":   "1000/hour",
				"api_read":  "5000/hour",
				"api_write": "1000/hour",
			},
			"premium": {
				"default":   "10000/hour",
				"api_read":  "50000/hour",
				"api_write": "10000/hour",
			},
		},
		Whitelist:       []string{"127.0.0.1", "::1"},
		FailurePolicy:   string(FailOpen),
		StoreTimeout:    DefaultStoreTimeout.String(),
		HitLogCapacity:  DefaultHitLogCapacity,
		HitLogRetention: DefaultHitLogRetention.String(),
		StatsTopKeys:    DefaultStatsTopKeys,
	}
}

// DefaultConfig compiles DefaultSettings. The built-in tables are valid.
func DefaultConfig() *Config {
	cfg, err := DefaultSettings().Compile()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Merge overlays o onto s: set scalars replace, table entries are merged
// key by key, and a non-nil whitelist replaces the list.
func (s Settings) Merge(o Settings) Settings {
	out := s
	out.Endpoints = maps.Clone(s.Endpoints)
	out.UserTypes = make(map[string]map[string]string, len(s.UserTypes))
	for ut, table := range s.UserTypes {
		out.UserTypes[ut] = maps.Clone(table)
	}

	if o.Enabled != nil {
		out.Enabled = o.Enabled
	}
	if o.Default != "" {
		out.Default = o.Default
	}
	if out.Endpoints == nil && len(o.Endpoints) > 0 {
		out.Endpoints = make(map[string]string, len(o.Endpoints))
	}
	maps.Copy(out.Endpoints, o.Endpoints)
	for ut, table := range o.UserTypes {
		if out.UserTypes[ut] == nil {
			out.UserTypes[ut] = make(map[string]string, len(table))
		}
		maps.Copy(out.UserTypes[ut], table)
	}
	if o.Whitelist != nil {
		out.Whitelist = o.Whitelist
	}
	if o.FailurePolicy != "" {
		out.FailurePolicy = o.FailurePolicy
	}
	if o.StoreTimeout != "" {
		out.StoreTimeout = o.StoreTimeout
	}
	if o.HitLogCapacity != 0 {
		out.HitLogCapacity = o.HitLogCapacity
	}
	if o.HitLogRetention != "" {
		out.HitLogRetention = o.HitLogRetention
	}
	if o.StatsTopKeys != 0 {
		out.StatsTopKeys = o.StatsTopKeys
	}
	return out
}

// Compile validates the settings and builds the immutable snapshot. Any
// invalid rule, unknown user type or category, invalid whitelist literal, or
// a missing global default is a configuration error.
func (s Settings) Compile() (*Config, error) {
	cfg := &Config{
		Enabled:       s.Enabled == nil || *s.Enabled,
		Endpoints:     make(map[models.EndpointCategory]models.QuotaRule, len(s.Endpoints)),
		UserTypes:     make(map[models.UserType]map[models.EndpointCategory]models.QuotaRule, len(s.UserTypes)),
		whitelist:     make(map[netip.Addr]struct{}, len(s.Whitelist)),
		FailurePolicy: FailurePolicy(strings.ToLower(strings.TrimSpace(s.FailurePolicy))),
	}

	if strings.TrimSpace(s.Default) == "" {
		return nil, configError("default", "global default rate limit is required")
	}
	rule, err := models.ParseRule(s.Default)
	if err != nil {
		return nil, wrapConfigError("default", err)
	}
	cfg.Default = rule

	for name, raw := range s.Endpoints {
		cat := models.EndpointCategory(name)
		if !cat.IsValid() {
			return nil, configError("endpoints."+name, "unknown endpoint category")
		}
		rule, err := models.ParseRule(raw)
		if err != nil {
			return nil, wrapConfigError("endpoints."+name, err)
		}
		cfg.Endpoints[cat] = rule
	}

	for utName, table := range s.UserTypes {
		ut := models.UserType(utName)
		if !ut.IsValid() {
			return nil, configError("user_types."+utName, "unknown user type")
		}
		rules := make(map[models.EndpointCategory]models.QuotaRule, len(table))
		for name, raw := range table {
			cat := models.EndpointCategory(name)
			if !cat.IsValid() {
				return nil, configError("user_types."+utName+"."+name, "unknown endpoint category")
			}
			rule, err := models.ParseRule(raw)
			if err != nil {
				return nil, wrapConfigError("user_types."+utName+"."+name, err)
			}
			rules[cat] = rule
		}
		cfg.UserTypes[ut] = rules
	}

	for _, raw := range s.Whitelist {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, configError("whitelist", fmt.Sprintf("invalid IP literal %q", raw))
		}
		cfg.whitelist[normalizeAddr(addr)] = struct{}{}
	}

	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailOpen
	}
	if !cfg.FailurePolicy.IsValid() {
		return nil, configError("failure_policy", "must be \"open\" or \"closed\"")
	}

	if cfg.StoreTimeout, err = parsePositiveDuration(s.StoreTimeout, DefaultStoreTimeout); err != nil {
		return nil, wrapConfigError("store_timeout", err)
	}
	if cfg.HitLogRetention, err = parsePositiveDuration(s.HitLogRetention, DefaultHitLogRetention); err != nil {
		return nil, wrapConfigError("hit_log_retention", err)
	}

	cfg.HitLogCapacity = s.HitLogCapacity
	if cfg.HitLogCapacity == 0 {
		cfg.HitLogCapacity = DefaultHitLogCapacity
	}
	if cfg.HitLogCapacity < 0 {
		return nil, configError("hit_log_capacity", "must be positive")
	}

	cfg.StatsTopKeys = s.StatsTopKeys
	if cfg.StatsTopKeys == 0 {
		cfg.StatsTopKeys = DefaultStatsTopKeys
	}
	if cfg.StatsTopKeys < 0 {
		return nil, configError("stats_top_keys", "must be positive")
	}

	return cfg, nil
}

func normalizeAddr(a netip.Addr) netip.Addr {
	return a.Unmap().WithZone("")
}

func parsePositiveDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return d, nil
}

func configError(field, msg string) error {
	return dErrors.New(dErrors.CodeConfiguration, field+": "+msg)
}

func wrapConfigError(field string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeConfiguration, field+": "+err.Error())
}
