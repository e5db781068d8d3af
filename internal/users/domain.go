package users

import (
	"errors"
	"time"
)

// Role is the coarse role assigned to every account. Fine-grained
// capabilities are resolved from the role default plus per-user overrides
// in the permissions package.
type Role string

const (
	RoleDesigner    Role = "designer"
	RoleConstructor Role = "constructor"
	RoleBuyer       Role = "buyer"
	RoleChinaOffice Role = "china_office"
	RoleFactory     Role = "factory"
)

// ParseRole validates a role value received from the outside.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleDesigner, RoleConstructor, RoleBuyer, RoleChinaOffice, RoleFactory:
		return Role(raw), nil
	}
	return "", ErrValidation
}

// User represents an account. Accounts are deactivated, never hard-deleted,
// so decision history keeps valid actor references.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	FactoryID    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicate indicates the email is already registered.
	ErrDuplicate = errors.New("users: duplicate email")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("users: invalid input")
)
