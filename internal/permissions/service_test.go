package permissions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atelier-works/atelier/internal/users"
)

type memoryRepo struct {
	roles     map[int64]users.Role
	active    map[int64]bool
	overrides map[int64]Overrides
	getCalls  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles:     make(map[int64]users.Role),
		active:    make(map[int64]bool),
		overrides: make(map[int64]Overrides),
	}
}

func (r *memoryRepo) addUser(id int64, role users.Role, active bool) {
	r.roles[id] = role
	r.active[id] = active
}

func (r *memoryRepo) GetGrant(ctx context.Context, actorID int64) (Grant, error) {
	r.getCalls++
	role, ok := r.roles[actorID]
	if !ok {
		return Grant{}, users.ErrNotFound
	}
	return Grant{
		ActorID:  actorID,
		Role:     role,
		IsActive: r.active[actorID],
		Set:      Resolve(role, r.overrides[actorID]),
	}, nil
}

func (r *memoryRepo) MergeOverrides(ctx context.Context, actorID int64, changes map[Capability]*bool) error {
	if _, ok := r.roles[actorID]; !ok {
		return users.ErrNotFound
	}
	current := r.overrides[actorID]
	if current == nil {
		current = make(Overrides)
	}
	for c, value := range changes {
		if value == nil {
			delete(current, c)
			continue
		}
		current[c] = *value
	}
	r.overrides[actorID] = current
	return nil
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestGetGrantCachesResolvedView(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(7, users.RoleDesigner, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)
	ctx := context.Background()

	first, err := svc.GetGrant(ctx, 7)
	require.NoError(t, err)
	require.True(t, first.Set.CanCreateModels)

	second, err := svc.GetGrant(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.getCalls, "second lookup must be served from cache")
}

func TestGetGrantMissingActor(t *testing.T) {
	svc := NewService(newMemoryRepo(), testCache(t), time.Minute, nil)

	_, err := svc.GetGrant(context.Background(), 404)
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestSetOverridesRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(3, users.RoleFactory, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)
	ctx := context.Background()

	// Warm the cache with the role default view.
	before, err := svc.GetPermissions(ctx, 3)
	require.NoError(t, err)
	require.False(t, before.CanUploadFiles)

	grant := true
	set, err := svc.SetOverrides(ctx, 3, map[Capability]*bool{CapUploadFiles: &grant})
	require.NoError(t, err)
	require.True(t, set.CanUploadFiles)

	// The stale cached view must be gone.
	after, err := svc.GetPermissions(ctx, 3)
	require.NoError(t, err)
	require.True(t, after.CanUploadFiles)
}

func TestSetOverridesClearRestoresRoleDefault(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(3, users.RoleFactory, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)
	ctx := context.Background()

	grant := true
	_, err := svc.SetOverrides(ctx, 3, map[Capability]*bool{CapUploadFiles: &grant})
	require.NoError(t, err)

	set, err := svc.SetOverrides(ctx, 3, map[Capability]*bool{CapUploadFiles: nil})
	require.NoError(t, err)
	require.False(t, set.CanUploadFiles, "cleared key must fall back to the role default")
	require.True(t, set.CanViewModels)
}

func TestSetOverridesRejectsUnknownCapability(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(3, users.RoleFactory, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)

	grant := true
	_, err := svc.SetOverrides(context.Background(), 3, map[Capability]*bool{Capability("can_fly"): &grant})
	require.ErrorIs(t, err, ErrUnknownCapability)
	require.Empty(t, repo.overrides[3], "nothing may be stored on a rejected change set")
}

func TestSetOverridesRejectsEmptyChangeSet(t *testing.T) {
	svc := NewService(newMemoryRepo(), testCache(t), time.Minute, nil)

	_, err := svc.SetOverrides(context.Background(), 3, nil)
	require.ErrorIs(t, err, ErrValidation)
}

// gatedRepo holds its first GetGrant open after the grant has been read,
// so a test can overlap a slow lookup with a concurrent write.
type gatedRepo struct {
	*memoryRepo
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (r *gatedRepo) GetGrant(ctx context.Context, actorID int64) (Grant, error) {
	grant, err := r.memoryRepo.GetGrant(ctx, actorID)
	var first bool
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.gate
	}
	return grant, err
}

func TestSetOverridesWinsOverInFlightRead(t *testing.T) {
	repo := &gatedRepo{
		memoryRepo: newMemoryRepo(),
		entered:    make(chan struct{}),
		gate:       make(chan struct{}),
	}
	repo.addUser(3, users.RoleFactory, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.GetGrant(ctx, 3)
	}()
	<-repo.entered

	// The write completes while the pre-write lookup is still open. It
	// must return the post-write view, not join the older lookup.
	grant := true
	set, err := svc.SetOverrides(ctx, 3, map[Capability]*bool{CapUploadFiles: &grant})
	require.NoError(t, err)
	require.True(t, set.CanUploadFiles)

	close(repo.gate)
	<-done

	// The released lookup carries the pre-write grant and must not write
	// it back into the cache over the invalidation.
	after, err := svc.GetPermissions(ctx, 3)
	require.NoError(t, err)
	require.True(t, after.CanUploadFiles)
}

func TestInvalidateForcesRepositoryRead(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(9, users.RoleBuyer, true)
	svc := NewService(repo, testCache(t), time.Minute, nil)
	ctx := context.Background()

	_, err := svc.GetGrant(ctx, 9)
	require.NoError(t, err)

	// Deactivation elsewhere must become visible after invalidation.
	repo.active[9] = false
	svc.Invalidate(ctx, 9)

	grant, err := svc.GetGrant(ctx, 9)
	require.NoError(t, err)
	require.False(t, grant.IsActive)
	require.Equal(t, 2, repo.getCalls)
}
