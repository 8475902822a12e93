package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the code-preserving wrap semantics every layer relies on.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Run("message wins over code", func() {
		s.Equal("quota exhausted", New(CodeRateLimited, "quota exhausted").Error())
	})

	s.Run("falls back to code", func() {
		s.Equal("unavailable", (&Error{Code: CodeUnavailable}).Error())
	})
}

func (s *DomainErrorsSuite) TestIs() {
	s.Run("matches by code regardless of message", func() {
		err := New(CodeConfiguration, "missing global default")
		s.True(errors.Is(err, &Error{Code: CodeConfiguration}))
		s.False(errors.Is(err, &Error{Code: CodeValidation}))
	})

	s.Run("matches through fmt wrapping", func() {
		err := fmt.Errorf("load quota file: %w", New(CodeConfiguration, "bad rule"))
		s.True(errors.Is(err, &Error{Code: CodeConfiguration}))
	})

	s.Run("plain errors never match", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not_found")))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("keeps the code of a wrapped domain error", func() {
		wrapped := Wrap(New(CodeNotFound, "user not found"), CodeInternal, "lookup user")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeNotFound, domainErr.Code)
		s.Equal("lookup user", domainErr.Message)
	})

	s.Run("applies the given code to foreign errors", func() {
		root := errors.New("dial tcp: connection refused")
		wrapped := Wrap(root, CodeUnavailable, "counter store unreachable")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, root))
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.True(HasCode(New(CodeRateLimited, "x"), CodeRateLimited))
	s.False(HasCode(New(CodeRateLimited, "x"), CodeForbidden))
	s.False(HasCode(errors.New("x"), CodeRateLimited))
	s.False(HasCode(nil, CodeRateLimited))
}
