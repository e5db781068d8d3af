package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

type memoryRepo struct {
	accounts map[string]users.User
	sessions map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: make(map[string]users.User),
		sessions: make(map[string]int64),
	}
}

func (r *memoryRepo) addAccount(email, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	r.accounts[email] = users.User{
		ID:           int64(len(r.accounts) + 1),
		Email:        email,
		PasswordHash: string(hash),
		Role:         users.RoleDesigner,
		IsActive:     active,
	}
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	u, ok := r.accounts[email]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, userAgent string) error {
	r.sessions[id] = userID
	return nil
}

func (r *memoryRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepo()
	repo.addAccount("designer@atelier.local", "secret-password", true)
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "designer@atelier.local", "secret-password")
	require.NoError(t, err)
	require.Equal(t, "designer@atelier.local", u.Email)

	_, err = svc.Authenticate(ctx, "designer@atelier.local", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@atelier.local", "secret-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	repo := newMemoryRepo()
	repo.addAccount("gone@atelier.local", "secret-password", false)
	svc := NewService(repo)

	// Indistinguishable from wrong credentials on purpose.
	_, err := svc.Authenticate(context.Background(), "gone@atelier.local", "secret-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionRegistry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "sess-1", 7, time.Now().Add(time.Hour), "127.0.0.1", "test"))
	require.Equal(t, int64(7), repo.sessions["sess-1"])

	require.NoError(t, svc.RemoveSession(ctx, "sess-1"))
	require.Empty(t, repo.sessions)
}
