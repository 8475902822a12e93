package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	rlmodels "gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/sentinel"
	"gatekeeper/internal/users/models"
	"gatekeeper/internal/users/service/mocks"
	"gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	tokens  *mocks.MockTokenIssuer
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.service = New(s.store, s.tokens, 30*time.Minute, WithBcryptCost(bcrypt.MinCost))
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) storedUser(password string, active bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	return &models.User{
		ID:           domain.NewUserID(),
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		Role:         models.RolePremium,
		Active:       active,
	}
}

func (s *ServiceSuite) TestRegister() {
	s.Run("creates user and token", func() {
		var created *models.User
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			created = u
			return nil
		})
		s.tokens.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), "user").Return("signed", nil)

		user, token, err := s.service.Register(s.ctx, &models.RegisterRequest{
			Email: "ada@example.com", Password: "correct-horse", FullName: "Ada",
		})

		s.Require().NoError(err)
		s.Same(created, user)
		s.Equal(models.RoleUser, user.Role)
		s.True(user.Active)
		s.Equal(s.now, user.CreatedAt)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
		s.Equal(&models.TokenResponse{AccessToken: "signed", TokenType: "bearer", ExpiresIn: 1800}, token)
	})

	s.Run("duplicate email is a conflict", func() {
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("email taken: %w", sentinel.ErrAlreadyExists))

		_, _, err := s.service.Register(s.ctx, &models.RegisterRequest{Email: "ada@example.com", Password: "correct-horse"})

		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

		_, _, err := s.service.Register(s.ctx, &models.RegisterRequest{Email: "ada@example.com", Password: "correct-horse"})

		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLogin() {
	s.Run("valid credentials", func() {
		user := s.storedUser("correct-horse", true)
		s.store.EXPECT().FindByEmail(gomock.Any(), "ada@example.com").Return(user, nil)
		s.tokens.EXPECT().GenerateAccessToken(gomock.Any(), user.ID.String(), "premium").Return("signed", nil)

		token, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})

		s.Require().NoError(err)
		s.Equal("signed", token.AccessToken)
	})

	s.Run("wrong password", func() {
		s.store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(s.storedUser("correct-horse", true), nil)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "ada@example.com", Password: "battery-staple"})

		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email looks like a wrong password", func() {
		s.store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "x"})

		s.ErrorIs(err, errInvalidCredentials)
	})

	s.Run("inactive user", func() {
		s.store.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(s.storedUser("correct-horse", false), nil)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})

		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestFindIdentity() {
	s.Run("maps role and status", func() {
		user := s.storedUser("pw-pw-pw-pw", false)
		s.store.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		identity, err := s.service.FindIdentity(s.ctx, user.ID.String())

		s.Require().NoError(err)
		s.Equal(&rlmodels.Identity{ID: user.ID.String(), Role: rlmodels.RolePremium, Active: false}, identity)
	})

	s.Run("malformed subject is not found", func() {
		_, err := s.service.FindIdentity(s.ctx, "42")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing user is not found", func() {
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.FindIdentity(s.ctx, domain.NewUserID().String())

		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListUsers() {
	s.store.EXPECT().List(gomock.Any(), 10, 5).Return([]*models.User{{Email: "a@example.com"}}, nil)

	users, err := s.service.ListUsers(s.ctx, models.Page{Skip: 10, Limit: 5})

	s.Require().NoError(err)
	s.Len(users, 1)
}
