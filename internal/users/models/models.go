package models

import (
	"time"

	"gatekeeper/pkg/domain"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RolePremium Role = "premium"
)

// User is the stored account. PasswordHash never leaves the service layer.
type User struct {
	ID           domain.UserID
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
