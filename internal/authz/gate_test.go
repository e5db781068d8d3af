package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/users"
)

type stubPerms struct {
	grants map[int64]permissions.Grant
}

func (s *stubPerms) GetGrant(ctx context.Context, actorID int64) (permissions.Grant, error) {
	grant, ok := s.grants[actorID]
	if !ok {
		return permissions.Grant{}, users.ErrNotFound
	}
	return grant, nil
}

func newStubPerms() *stubPerms {
	return &stubPerms{grants: map[int64]permissions.Grant{
		1: {ActorID: 1, Role: users.RoleBuyer, IsActive: true, Set: permissions.RoleDefaults(users.RoleBuyer)},
		2: {ActorID: 2, Role: users.RoleConstructor, IsActive: true, Set: permissions.RoleDefaults(users.RoleConstructor)},
		3: {ActorID: 3, Role: users.RoleDesigner, IsActive: true, Set: permissions.RoleDefaults(users.RoleDesigner)},
		4: {ActorID: 4, Role: users.RoleBuyer, IsActive: false, Set: permissions.RoleDefaults(users.RoleBuyer)},
	}}
}

func TestAuthorizeGrantedCapability(t *testing.T) {
	gate := NewGate(newStubPerms())
	require.NoError(t, gate.Authorize(context.Background(), 3, permissions.CapCreateModels))
}

func TestAuthorizeMissingCapability(t *testing.T) {
	gate := NewGate(newStubPerms())
	err := gate.Authorize(context.Background(), 3, permissions.CapDeleteModels)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeDeactivatedActorDeniedEverything(t *testing.T) {
	gate := NewGate(newStubPerms())
	ctx := context.Background()

	// Actor 4 holds the full buyer template, but the activation flag wins.
	for _, c := range permissions.AllCapabilities() {
		err := gate.Authorize(ctx, 4, c)
		require.ErrorIs(t, err, ErrForbidden, "deactivated actor must be denied %s", c)
	}
}

func TestAuthorizeUnknownActor(t *testing.T) {
	gate := NewGate(newStubPerms())
	err := gate.Authorize(context.Background(), 404, permissions.CapViewModels)
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestAuthorizeApprovalDecisionTracksAreIndependent(t *testing.T) {
	gate := NewGate(newStubPerms())
	ctx := context.Background()

	require.NoError(t, gate.AuthorizeApprovalDecision(ctx, 1, TrackBuyer))
	require.ErrorIs(t, gate.AuthorizeApprovalDecision(ctx, 1, TrackConstructor), ErrForbidden)

	require.NoError(t, gate.AuthorizeApprovalDecision(ctx, 2, TrackConstructor))
	require.ErrorIs(t, gate.AuthorizeApprovalDecision(ctx, 2, TrackBuyer), ErrForbidden)
}

func TestAuthorizeApprovalDecisionUnknownTrack(t *testing.T) {
	gate := NewGate(newStubPerms())
	err := gate.AuthorizeApprovalDecision(context.Background(), 1, "qa")
	require.ErrorIs(t, err, ErrUnknownTrack)
}

func TestAuthorizeStatusChange(t *testing.T) {
	gate := NewGate(newStubPerms())
	ctx := context.Background()

	require.NoError(t, gate.AuthorizeStatusChange(ctx, 1))
	require.ErrorIs(t, gate.AuthorizeStatusChange(ctx, 3), ErrForbidden)
}
