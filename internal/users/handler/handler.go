package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/users/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, *models.TokenResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	GetUser(ctx context.Context, rawID string) (*models.User, error)
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)
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

// RegisterPublic mounts the credential endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterAuthenticated mounts routes that need a principal. The caller
// wraps r with the auth guard.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/users/me", h.HandleMe)
	r.Get("/users/{id}", h.HandleGetUser)
}

// RegisterAdmin mounts routes that need the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users/", h.HandleListUsers)
}

// HandleRegister implements POST /auth/register.
//
// Input: {"email": "...", "password": "...", "name": "..."}
// Output: {"user": {...}, "access_token": "...", "token_type": "bearer", "expires_in": N}
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, token, err := h.service.Register(ctx, req)
	if err != nil {
		h.logError(ctx, "failed to register user", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &models.RegisterResponse{
		User:          models.NewUserResponse(user),
		TokenResponse: *token,
	})
}

// HandleLogin implements POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Login(ctx, req)
	if err != nil {
		h.logError(ctx, "login failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := requestcontext.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
		return
	}
	h.writeUser(w, r, principal.UserID)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, chi.URLParam(r, "id"))
}

// HandleListUsers implements GET /users/?skip=&limit=.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := models.ParsePage(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	users, err := h.service.ListUsers(ctx, page)
	if err != nil {
		h.logError(ctx, "failed to list users", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.NewUserResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) writeUser(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx := r.Context()
	user, err := h.service.GetUser(ctx, rawID)
	if err != nil {
		h.logError(ctx, "failed to load user", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}

// logError keeps client mistakes at warn so only server faults reach error.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if httputil.DomainCodeToHTTPStatus(codeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func codeOf(err error) dErrors.Code {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return dErrors.CodeInternal
}
