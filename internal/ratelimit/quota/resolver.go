package quota

import (
	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/models"
)

// Resolver maps a classification to its effective quota over one immutable
// config snapshot. It is safe for concurrent use.
type Resolver struct {
	cfg *config.Config
}

func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve never fails: the lookup always ends at the global default.
//
// Order: disabled switch, IP whitelist, then
// user_types[type][category], user_types[type]["default"], endpoints[category],
// and finally the global default.
func (r *Resolver) Resolve(c models.Classification) models.EffectiveQuota {
	if !r.cfg.Enabled {
		return models.Unbounded()
	}
	if r.cfg.IsWhitelisted(c.RemoteAddress) {
		return models.Unbounded()
	}
	return models.Limited(r.lookup(c.UserType, c.Category))
}

func (r *Resolver) lookup(ut models.UserType, cat models.EndpointCategory) models.QuotaRule {
	if table, ok := r.cfg.UserTypes[ut]; ok {
		if rule, ok := table[cat]; ok {
			return rule
		}
		if rule, ok := table[models.CategoryDefault]; ok {
			return rule
		}
	}
	if rule, ok := r.cfg.Endpoints[cat]; ok {
		return rule
	}
	return r.cfg.Default
}
