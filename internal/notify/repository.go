package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-works/atelier/internal/models"
)

// Repository resolves notification recipients from the database.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ModelWatchers returns the active creator of the model. The creator is the
// one who resubmits after a rejected sign-off.
func (r *Repository) ModelWatchers(ctx context.Context, event models.DecisionEvent) ([]string, error) {
	return r.creatorEmail(ctx, event.ModelID.String())
}

// StatusWatchers returns the active creator of the model.
func (r *Repository) StatusWatchers(ctx context.Context, event models.StatusEvent) ([]string, error) {
	return r.creatorEmail(ctx, event.ModelID.String())
}

func (r *Repository) creatorEmail(ctx context.Context, modelID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.email FROM users u
JOIN models m ON m.created_by = u.id
WHERE m.id = $1 AND u.is_active`, modelID)
	if err != nil {
		return nil, fmt.Errorf("notify: creator email: %w", err)
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("notify: scan email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
