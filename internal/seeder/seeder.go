// Package seeder creates bootstrap accounts at startup. Registration only
// creates plain users, so admin and premium accounts come from here.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatekeeper/internal/sentinel"
	"gatekeeper/internal/users/models"
	"gatekeeper/pkg/domain"
	"gatekeeper/pkg/secrets"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Account is one bootstrap user.
type Account struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// DemoAccounts are seeded outside production when SEED_DEMO_USERS is set.
func DemoAccounts() []Account {
	return []Account{
		{Email: "admin@example.com", Password: "admin123", Name: "Admin User", Role: models.RoleAdmin},
		{Email: "premium@example.com", Password: "premium123", Name: "Premium User", Role: models.RolePremium},
		{Email: "user@example.com", Password: "user12345", Name: "Regular User", Role: models.RoleUser},
	}
}

type Seeder struct {
	users      UserStore
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

func New(users UserStore, logger *slog.Logger, bcryptCost int) *Seeder {
	return &Seeder{
		users:      users,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// SeedAll ensures every account exists. Existing emails are left untouched,
// so running it on every start is safe. Returns how many accounts it created.
func (s *Seeder) SeedAll(ctx context.Context, accounts []Account) (int, error) {
	created := 0
	for _, a := range accounts {
		ok, err := s.ensure(ctx, a)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", a.Email, err)
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		s.logger.InfoContext(ctx, "bootstrap accounts seeded", "created", created, "requested", len(accounts))
	}
	return created, nil
}

func (s *Seeder) ensure(ctx context.Context, a Account) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if email == "" {
		return false, errors.New("email is required")
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, err
	}

	hash, err := secrets.Hash(a.Password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	now := s.now().UTC()
	err = s.users.Create(ctx, &models.User{
		ID:           domain.NewUserID(),
		Email:        email,
		FullName:     a.Name,
		PasswordHash: hash,
		Role:         a.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, sentinel.ErrAlreadyExists) {
		// another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.DebugContext(ctx, "seeded account", "email", email, "role", a.Role)
	return true, nil
}
