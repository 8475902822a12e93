package middleware

import (
	"context"

	"gatekeeper/internal/ratelimit/models"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) *models.Identity
}

type QuotaResolver interface {
	Resolve(c models.Classification) models.EffectiveQuota
}

type Admitter interface {
	Admit(ctx context.Context, c models.Classification, q models.EffectiveQuota) *models.Decision
}

type HitRecorder interface {
	RecordHit(ctx context.Context, rc models.RequestContext, c models.Classification, rule string)
}
