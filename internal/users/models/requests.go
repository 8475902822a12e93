package models

import (
	"strconv"
	"strings"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/validation"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"name" validate:"notblank,max=100"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// Page is the ?skip=&limit= window of the user listing.
type Page struct {
	Skip  int
	Limit int
}

// ParsePage reads skip and limit query values. limit is capped at MaxPageLimit.
func ParsePage(skip, limit string) (Page, error) {
	p := Page{Limit: DefaultPageLimit}
	if skip != "" {
		n, err := strconv.Atoi(skip)
		if err != nil || n < 0 {
			return Page{}, dErrors.New(dErrors.CodeValidation, "skip must be a non-negative integer")
		}
		p.Skip = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return Page{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		p.Limit = min(n, MaxPageLimit)
	}
	return p, nil
}
