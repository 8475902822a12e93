// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
)

type UserID uuid.UUID

// NewUserID returns a random v4 user id.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID is used at trust boundaries (token subjects, URL params).
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid user ID format")
	}
	return UserID(id), nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

// IsNil allows store lookups of the nil id to report not found.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
