package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-works/atelier/internal/users"
)

// Grant is everything the gate needs to decide: the actor's role and
// activation flag plus the resolved capability set.
type Grant struct {
	ActorID  int64         `json:"actor_id"`
	Role     users.Role    `json:"role"`
	IsActive bool          `json:"is_active"`
	Set      PermissionSet `json:"set"`
}

// Repository provides PostgreSQL backed persistence for override records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetGrant loads the actor's role, activation flag and override record in
// one round trip and resolves the capability set. A missing override row
// means the role default applies unchanged.
func (r *Repository) GetGrant(ctx context.Context, actorID int64) (Grant, error) {
	var (
		role         string
		isActive     bool
		overrideJSON []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT u.role, u.is_active, o.overrides
FROM users u
LEFT JOIN user_permission_overrides o ON o.user_id = u.id
WHERE u.id = $1`, actorID).Scan(&role, &isActive, &overrideJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, users.ErrNotFound
		}
		return Grant{}, fmt.Errorf("permissions: get grant: %w", err)
	}

	overrides, err := decodeOverrides(overrideJSON)
	if err != nil {
		return Grant{}, err
	}
	return Grant{
		ActorID:  actorID,
		Role:     users.Role(role),
		IsActive: isActive,
		Set:      Resolve(users.Role(role), overrides),
	}, nil
}

// MergeOverrides applies a partial change set to the actor's override
// record. Keys with a value are set, keys with nil are cleared back to
// "inherit from role". Previously set keys not mentioned stay untouched.
func (r *Repository) MergeOverrides(ctx context.Context, actorID int64, changes map[Capability]*bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("permissions: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, actorID).Scan(&exists); err != nil {
		return fmt.Errorf("permissions: check actor: %w", err)
	}
	if !exists {
		return users.ErrNotFound
	}

	var overrideJSON []byte
	err = tx.QueryRow(ctx, `SELECT overrides FROM user_permission_overrides WHERE user_id = $1 FOR UPDATE`, actorID).Scan(&overrideJSON)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("permissions: load overrides: %w", err)
	}
	overrides, err := decodeOverrides(overrideJSON)
	if err != nil {
		return err
	}
	if overrides == nil {
		overrides = make(Overrides)
	}

	for c, value := range changes {
		if value == nil {
			delete(overrides, c)
			continue
		}
		overrides[c] = *value
	}

	data, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("permissions: encode overrides: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO user_permission_overrides (user_id, overrides, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET overrides = EXCLUDED.overrides, updated_at = NOW()`, actorID, data)
	if err != nil {
		return fmt.Errorf("permissions: store overrides: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("permissions: commit tx: %w", err)
	}
	return nil
}

func decodeOverrides(raw []byte) (Overrides, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var stored map[string]bool
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("permissions: decode overrides: %w", err)
	}
	overrides := make(Overrides, len(stored))
	for name, value := range stored {
		// Capabilities retired from the vocabulary may linger in old
		// rows; they resolve to nothing rather than failing the lookup.
		c, err := ParseCapability(name)
		if err != nil {
			continue
		}
		overrides[c] = value
	}
	return overrides, nil
}
