package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureTokenIsStablePerSession(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := &Session{ID: "abc"}
	ctx := context.Background()

	first, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestVerifyToken(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := &Session{ID: "abc"}
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, m.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}

func TestVerifyTokenWithoutIssuedToken(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := &Session{ID: "abc"}

	require.ErrorIs(t, m.VerifyToken(context.Background(), sess, "anything"), ErrCSRFTokenMissing)
}
