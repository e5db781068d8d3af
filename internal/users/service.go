package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, u User) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// PermissionInvalidator drops cached permission views after account writes,
// so a session never keeps acting on a stale role or activation flag.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, actorID int64)
}

// Service handles account business logic. Authorization for these
// endpoints is enforced by route middleware in front of the handler.
type Service struct {
	repo        RepositoryPort
	invalidator PermissionInvalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator PermissionInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateInput describes a new account.
type CreateInput struct {
	Email     string
	Name      string
	Password  string
	Role      Role
	FactoryID *int64
}

// Create registers a new active account.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if _, err := ParseRole(string(input.Role)); err != nil {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	u := User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
		FactoryID:    factoryBinding(input.Role, input.FactoryID),
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateInput describes mutable account attributes.
type UpdateInput struct {
	Name      string
	Role      Role
	FactoryID *int64
}

// Update edits an account and invalidates its cached permissions: a role
// change takes effect on the next request.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	if _, err := ParseRole(string(input.Role)); err != nil {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Name = strings.TrimSpace(input.Name)
	u.Role = input.Role
	u.FactoryID = factoryBinding(input.Role, input.FactoryID)
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	s.invalidate(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Deactivate disables an account. The record stays so history keeps valid
// actor references; the gate denies every capability from here on.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Reactivate re-enables an account.
func (s *Service) Reactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(ctx, id)
}

// The factory binding is only meaningful for factory accounts; it is
// dropped for every other role.
func factoryBinding(role Role, factoryID *int64) *int64 {
	if role != RoleFactory {
		return nil
	}
	return factoryID
}
