package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-works/atelier/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const modelColumns = `id, name, sku, season, collection, gender, age_group, factory_id,
status, status_changed_by, status_changed_at, created_by, created_at, updated_at`

// Create inserts the model and both pending approval tracks in one
// transaction, so a model never exists without its lanes.
func (r *Repository) Create(ctx context.Context, m Model, tracks []ApprovalTrack) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO models
(id, name, sku, season, collection, gender, age_group, factory_id, status, status_changed_by, status_changed_at, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
			m.ID, m.Name, m.SKU, m.Season, m.Collection, m.Gender, m.AgeGroup, m.FactoryID,
			m.Status, m.StatusChangedBy, m.StatusChangedAt, m.CreatedBy, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("models: insert model: %w", err)
		}
		for _, track := range tracks {
			_, err := tx.Exec(ctx, `INSERT INTO approval_tracks (id, model_id, track, status)
VALUES ($1, $2, $3, $4)`, track.ID, track.ModelID, track.Track, track.Status)
			if err != nil {
				return fmt.Errorf("models: insert track: %w", err)
			}
		}
		return nil
	})
}

// Get returns the model with both approval tracks.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Model, []ApprovalTrack, error) {
	var m Model
	err := r.pool.QueryRow(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1`, id).Scan(
		&m.ID, &m.Name, &m.SKU, &m.Season, &m.Collection, &m.Gender, &m.AgeGroup, &m.FactoryID,
		&m.Status, &m.StatusChangedBy, &m.StatusChangedAt, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Model{}, nil, ErrNotFound
		}
		return Model{}, nil, fmt.Errorf("models: get model: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT id, model_id, track, status, comment, decided_by, decided_at
FROM approval_tracks WHERE model_id = $1 ORDER BY track`, id)
	if err != nil {
		return Model{}, nil, fmt.Errorf("models: list tracks: %w", err)
	}
	defer rows.Close()
	var tracks []ApprovalTrack
	for rows.Next() {
		var t ApprovalTrack
		if err := rows.Scan(&t.ID, &t.ModelID, &t.Track, &t.Status, &t.Comment, &t.DecidedBy, &t.DecidedAt); err != nil {
			return Model{}, nil, fmt.Errorf("models: scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return Model{}, nil, err
	}
	return m, tracks, nil
}

// List returns models matching the filters, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE 1=1`
	args := []any{}
	if filters.Season != "" {
		args = append(args, filters.Season)
		query += fmt.Sprintf(" AND season = $%d", len(args))
	}
	if filters.Collection != "" {
		args = append(args, filters.Collection)
		query += fmt.Sprintf(" AND collection = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("models: list: %w", err)
	}
	defer rows.Close()
	var out []Model
	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.ID, &m.Name, &m.SKU, &m.Season, &m.Collection, &m.Gender, &m.AgeGroup, &m.FactoryID,
			&m.Status, &m.StatusChangedBy, &m.StatusChangedAt, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("models: scan model: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the model; the tracks go with it via FK cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("models: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails updates the editable attributes of a model.
func (r *Repository) UpdateDetails(ctx context.Context, m Model) error {
	tag, err := r.pool.Exec(ctx, `UPDATE models
SET name = $2, sku = $3, season = $4, collection = $5, gender = $6, age_group = $7, factory_id = $8, updated_at = NOW()
WHERE id = $1`, m.ID, m.Name, m.SKU, m.Season, m.Collection, m.Gender, m.AgeGroup, m.FactoryID)
	if err != nil {
		return fmt.Errorf("models: update details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets the lifecycle status. Last write wins; there is no
// version check on the row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status LifecycleStatus, actorID int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE models
SET status = $2, status_changed_by = $3, status_changed_at = $4, updated_at = NOW()
WHERE id = $1`, id, status, actorID, at)
	if err != nil {
		return fmt.Errorf("models: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTrack loads one approval lane of a model.
func (r *Repository) GetTrack(ctx context.Context, modelID uuid.UUID, track Track) (ApprovalTrack, error) {
	var t ApprovalTrack
	err := r.pool.QueryRow(ctx, `SELECT id, model_id, track, status, comment, decided_by, decided_at
FROM approval_tracks WHERE model_id = $1 AND track = $2`, modelID, track).Scan(
		&t.ID, &t.ModelID, &t.Track, &t.Status, &t.Comment, &t.DecidedBy, &t.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApprovalTrack{}, ErrNotFound
		}
		return ApprovalTrack{}, fmt.Errorf("models: get track: %w", err)
	}
	return t, nil
}

// UpdateTrack stores a decision. Concurrent decisions on the same track
// race and the later write overwrites the earlier one.
func (r *Repository) UpdateTrack(ctx context.Context, t ApprovalTrack) error {
	tag, err := r.pool.Exec(ctx, `UPDATE approval_tracks
SET status = $2, comment = $3, decided_by = $4, decided_at = $5
WHERE id = $1`, t.ID, t.Status, t.Comment, t.DecidedBy, t.DecidedAt)
	if err != nil {
		return fmt.Errorf("models: update track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
