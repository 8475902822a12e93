//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/sentinel"
	"gatekeeper/internal/users/models"
	"gatekeeper/internal/users/store"
	"gatekeeper/pkg/domain"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresStoreSuite) newUser(email string, createdAt time.Time) *models.User {
	return &models.User{
		ID:           domain.NewUserID(),
		Email:        email,
		FullName:     "Grace Hopper",
		PasswordHash: "$2a$04$hash",
		Role:         models.RolePremium,
		Active:       true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Microsecond)
	user := s.newUser("grace@example.com", created)
	s.Require().NoError(s.store.Create(ctx, user))

	found, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, found.Email)
	s.Equal(models.RolePremium, found.Role)
	s.True(found.CreatedAt.Equal(created))

	byEmail, err := s.store.FindByEmail(ctx, "grace@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)
}

func (s *PostgresStoreSuite) TestDuplicateEmail() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("dup@example.com", time.Now())))

	err := s.store.Create(ctx, s.newUser("dup@example.com", time.Now()))

	s.ErrorIs(err, sentinel.ErrAlreadyExists)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), domain.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		s.Require().NoError(s.store.Create(ctx, s.newUser(e, base.Add(time.Duration(i)*time.Second))))
	}

	page, err := s.store.List(ctx, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("b@example.com", page[0].Email)
}
