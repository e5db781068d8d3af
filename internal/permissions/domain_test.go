package permissions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-works/atelier/internal/users"
)

func TestResolveRoleDefaults(t *testing.T) {
	set := Resolve(users.RoleConstructor, nil)
	require.True(t, set.CanApproveAsConstructor)
	require.False(t, set.CanApproveAsBuyer)
	require.False(t, set.CanDeleteModels)
	require.Equal(t, RoleDefaults(users.RoleConstructor), set)
}

func TestResolveOverrideWins(t *testing.T) {
	set := Resolve(users.RoleDesigner, Overrides{
		CapDeleteModels: true,
		CapEditModels:   false,
	})
	require.True(t, set.CanDeleteModels, "grant override must win over the role default")
	require.False(t, set.CanEditModels, "revoke override must win over the role default")

	// Capabilities not mentioned in the overrides keep the role default.
	require.True(t, set.CanViewModels)
	require.True(t, set.CanCreateModels)
	require.False(t, set.CanApproveAsBuyer)
}

func TestResolveUnknownRoleDeniesEverything(t *testing.T) {
	set := Resolve(users.Role("intern"), nil)
	for _, c := range AllCapabilities() {
		require.False(t, set.Get(c), "unknown role must not hold %s", c)
	}
}

func TestResolveIgnoresRetiredOverrideKeys(t *testing.T) {
	set := Resolve(users.RoleFactory, Overrides{Capability("can_fly"): true})
	require.Equal(t, RoleDefaults(users.RoleFactory), set)
}

func TestGetSetRoundTrip(t *testing.T) {
	for _, c := range AllCapabilities() {
		var set PermissionSet
		require.False(t, set.Get(c))
		set.set(c, true)
		require.True(t, set.Get(c), "set/get disagree on %s", c)
	}
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("can_approve_as_buyer")
	require.NoError(t, err)
	require.Equal(t, CapApproveAsBuyer, c)

	_, err = ParseCapability("can_approve_as_intern")
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestPermissionSetJSONIsExhaustive(t *testing.T) {
	set := RoleDefaults(users.RoleBuyer)
	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded map[string]bool
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(AllCapabilities()))
	for _, c := range AllCapabilities() {
		_, ok := decoded[string(c)]
		require.True(t, ok, "serialized set is missing %s", c)
	}
}

func TestBuyerIsTheAdminEquivalentRole(t *testing.T) {
	buyer := RoleDefaults(users.RoleBuyer)
	require.True(t, buyer.CanViewUsers)
	require.True(t, buyer.CanCreateUsers)
	require.True(t, buyer.CanEditUsers)
	require.True(t, buyer.CanDeleteUsers)
	require.True(t, buyer.CanApproveAsBuyer)
	require.False(t, buyer.CanApproveAsConstructor)

	for _, role := range []users.Role{users.RoleDesigner, users.RoleConstructor, users.RoleChinaOffice, users.RoleFactory} {
		set := RoleDefaults(role)
		require.False(t, set.CanViewUsers, "%s must not manage users by default", role)
		require.False(t, set.CanApproveAsBuyer, "%s must not hold the buyer sign-off by default", role)
	}
}
