package service

import (
	"context"

	"gatekeeper/internal/users/models"
	"gatekeeper/pkg/domain"
)

// Store persists user accounts. See store package for the error contract.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID domain.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, skip, limit int) ([]*models.User, error)
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, userID, role string) (string, error)
}
