package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	rlmodels "gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/sentinel"
	"gatekeeper/internal/users/models"
	"gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
	"gatekeeper/pkg/secrets"
)

const tokenType = "bearer"

// errInvalidCredentials is returned for both unknown emails and wrong passwords.
var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "Incorrect email or password")

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

type Service struct {
	store      Store
	tokens     TokenIssuer
	tokenTTL   time.Duration
	bcryptCost int
	logger     *slog.Logger
}

func New(store Store, tokens TokenIssuer, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:      store,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active user with the default role and signs a token
// for it.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, *models.TokenResponse, error) {
	hash, err := secrets.Hash(req.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	user := &models.User{
		ID:           domain.NewUserID(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, token, nil
}

// Login checks credentials and signs a token. Inactive users are refused.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "Inactive user")
	}
	return s.issue(ctx, user)
}

// GetUser loads a user by its string id. Malformed ids are reported as not found.
func (s *Service) GetUser(ctx context.Context, rawID string) (*models.User, error) {
	userID, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	users, err := s.store.List(ctx, page.Skip, page.Limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

// FindIdentity gives the rate limiter the current role and status of the
// token subject, so role changes and deactivation apply before token expiry.
func (s *Service) FindIdentity(ctx context.Context, userID string) (*rlmodels.Identity, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rlmodels.Identity{
		ID:     user.ID.String(),
		Role:   rlmodels.Role(user.Role),
		Active: user.Active,
	}, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	token, err := s.tokens.GenerateAccessToken(ctx, user.ID.String(), string(user.Role))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue access token")
	}
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}
