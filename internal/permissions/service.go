package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort defines data access methods used by Service.
type RepositoryPort interface {
	GetGrant(ctx context.Context, actorID int64) (Grant, error)
	MergeOverrides(ctx context.Context, actorID int64, changes map[Capability]*bool) error
}

// Service resolves and mutates per-actor permission state. Resolved grants
// are cached in Redis; the cache is only ever refreshed by the explicit
// invalidation on override or account writes, so a read is never staler
// than the last write that went through this service.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group

	// epochs advances on every invalidation; a grant resolved under an
	// older epoch must not be written back into the cache.
	mu     sync.Mutex
	epochs map[int64]uint64
}

// NewService builds a Service. The cache client may be nil, in which case
// every lookup goes to the repository.
func NewService(repo RepositoryPort, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger, epochs: make(map[int64]uint64)}
}

// GetGrant returns the actor's resolved grant. Concurrent lookups for the
// same actor are collapsed into a single repository round trip.
func (s *Service) GetGrant(ctx context.Context, actorID int64) (Grant, error) {
	if grant, ok := s.cached(ctx, actorID); ok {
		return grant, nil
	}

	v, err, _ := s.group.Do(cacheKey(actorID), func() (any, error) {
		epoch := s.epoch(actorID)
		grant, err := s.repo.GetGrant(ctx, actorID)
		if err != nil {
			return Grant{}, err
		}
		s.store(ctx, grant, epoch)
		return grant, nil
	})
	if err != nil {
		return Grant{}, err
	}
	return v.(Grant), nil
}

// GetPermissions returns the resolved capability set for an actor.
func (s *Service) GetPermissions(ctx context.Context, actorID int64) (PermissionSet, error) {
	grant, err := s.GetGrant(ctx, actorID)
	if err != nil {
		return PermissionSet{}, err
	}
	return grant.Set, nil
}

// SetOverrides applies a partial override change set and returns the newly
// resolved permission set. A nil value clears the key back to the role
// default; overrides otherwise accumulate across calls.
func (s *Service) SetOverrides(ctx context.Context, actorID int64, changes map[Capability]*bool) (PermissionSet, error) {
	if len(changes) == 0 {
		return PermissionSet{}, fmt.Errorf("%w: empty override change set", ErrValidation)
	}
	for c := range changes {
		if _, err := ParseCapability(string(c)); err != nil {
			return PermissionSet{}, fmt.Errorf("%w: %q", ErrUnknownCapability, string(c))
		}
	}

	if err := s.repo.MergeOverrides(ctx, actorID, changes); err != nil {
		return PermissionSet{}, err
	}
	s.Invalidate(ctx, actorID)

	// Resolve straight from the repository rather than through GetGrant:
	// joining a collapsed read that started before the merge would hand
	// back the pre-write grant.
	epoch := s.epoch(actorID)
	grant, err := s.repo.GetGrant(ctx, actorID)
	if err != nil {
		return PermissionSet{}, err
	}
	s.store(ctx, grant, epoch)
	return grant.Set, nil
}

// Invalidate drops the cached grant for an actor. Account mutations that
// can change role or activation must call this as well.
func (s *Service) Invalidate(ctx context.Context, actorID int64) {
	s.bump(actorID)
	s.group.Forget(cacheKey(actorID))
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(actorID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("invalidate permission cache", slog.Int64("actor_id", actorID), slog.Any("error", err))
	}
}

func (s *Service) epoch(actorID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[actorID]
}

func (s *Service) bump(actorID int64) {
	s.mu.Lock()
	s.epochs[actorID]++
	s.mu.Unlock()
}

func (s *Service) cached(ctx context.Context, actorID int64) (Grant, bool) {
	if s.cache == nil {
		return Grant{}, false
	}
	data, err := s.cache.Get(ctx, cacheKey(actorID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("read permission cache", slog.Int64("actor_id", actorID), slog.Any("error", err))
		}
		return Grant{}, false
	}
	var grant Grant
	if err := json.Unmarshal(data, &grant); err != nil {
		s.logger.Warn("decode permission cache", slog.Int64("actor_id", actorID), slog.Any("error", err))
		return Grant{}, false
	}
	return grant, true
}

func (s *Service) store(ctx context.Context, grant Grant, epoch uint64) {
	if s.cache == nil {
		return
	}
	if s.epoch(grant.ActorID) != epoch {
		return
	}
	data, err := json.Marshal(grant)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(grant.ActorID), data, s.ttl).Err(); err != nil {
		s.logger.Warn("write permission cache", slog.Int64("actor_id", grant.ActorID), slog.Any("error", err))
	}
}

func cacheKey(actorID int64) string {
	return fmt.Sprintf("perm:%d", actorID)
}
