package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

type Service interface {
	Stats(ctx context.Context) (*models.Stats, error)
	Reset(ctx context.Context, bucketKey string) (int, error)
	RecentHits(ctx context.Context, limit int) ([]models.HitRecord, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterAdmin mounts the monitoring routes. Callers must wrap r with an
// admin role check.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/rate-limits/stats", h.HandleStats)
	r.Delete("/admin/rate-limits/reset/{key}", h.HandleReset)
	r.Get("/admin/rate-limits/hits", h.HandleRecentHits)
}

// HandleStats implements GET /admin/rate-limits/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to collect rate limit stats",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleReset implements DELETE /admin/rate-limits/reset/{key}.
//
// {key} is "user:<id>", "ip:<address>" or a bare identifier, which resets
// both. Output: {"message": "...", "keys_deleted": N}
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "key is not a valid path segment"))
		return
	}
	req := &models.ResetRequest{BucketKey: raw}
	if err := httputil.PrepareRequest(req); err != nil {
		h.logger.WarnContext(ctx, "invalid reset request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	deleted, err := h.service.Reset(ctx, req.BucketKey)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to reset rate limit",
			"error", err,
			"bucket_key", req.BucketKey,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	actor := ""
	if p, ok := requestcontext.GetPrincipal(ctx); ok {
		actor = p.UserID
	}
	h.logger.InfoContext(ctx, "admin reset rate limit",
		"bucket_key", req.BucketKey,
		"keys_deleted", deleted,
		"admin_user_id", actor,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, &models.ResetResponse{
		Message:     "Rate limit reset for " + req.BucketKey,
		KeysDeleted: deleted,
	})
}

// HandleRecentHits implements GET /admin/rate-limits/hits?limit=N.
func (h *Handler) HandleRecentHits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := models.ParseHitsLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hits, err := h.service.RecentHits(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read rate limit hits",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if hits == nil {
		hits = []models.HitRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, &models.HitsResponse{Hits: hits, Count: len(hits)})
}
