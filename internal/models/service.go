package models

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, m Model, tracks []ApprovalTrack) error
	Get(ctx context.Context, id uuid.UUID) (Model, []ApprovalTrack, error)
	List(ctx context.Context, filters ListFilters) ([]Model, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateDetails(ctx context.Context, m Model) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status LifecycleStatus, actorID int64, at time.Time) error
	GetTrack(ctx context.Context, modelID uuid.UUID, track Track) (ApprovalTrack, error)
	UpdateTrack(ctx context.Context, t ApprovalTrack) error
}

// GatePort is the authorization checkpoint every mutation passes through.
type GatePort interface {
	Authorize(ctx context.Context, actorID int64, c permissions.Capability) error
	AuthorizeApprovalDecision(ctx context.Context, actorID int64, track string) error
	AuthorizeStatusChange(ctx context.Context, actorID int64) error
}

// AuditPort records history; previous statuses live here, not on the rows.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
	ListForEntity(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}

// Service orchestrates the model workflow.
type Service struct {
	repo     RepositoryPort
	gate     GatePort
	audit    AuditPort
	notifier NotifierPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the model service.
func NewService(repo RepositoryPort, gate GatePort, audit AuditPort, notifier NotifierPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gate: gate, audit: audit, notifier: notifier, logger: logger, now: time.Now}
}

// CreateInput describes a new model.
type CreateInput struct {
	Name       string
	SKU        string
	Season     string
	Collection string
	Gender     string
	AgeGroup   string
	FactoryID  *int64
}

// Create persists a new model in draft with both tracks pending.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (Model, error) {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapCreateModels); err != nil {
		return Model{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return Model{}, fmt.Errorf("%w: model name is required", ErrValidation)
	}
	if strings.TrimSpace(input.Season) == "" {
		return Model{}, fmt.Errorf("%w: season is required", ErrValidation)
	}

	now := s.now()
	m := Model{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(input.Name),
		SKU:             strings.TrimSpace(input.SKU),
		Season:          input.Season,
		Collection:      input.Collection,
		Gender:          input.Gender,
		AgeGroup:        input.AgeGroup,
		FactoryID:       input.FactoryID,
		Status:          StatusDraft,
		StatusChangedBy: actorID,
		StatusChangedAt: now,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tracks := []ApprovalTrack{
		{ID: uuid.New(), ModelID: m.ID, Track: TrackBuyer, Status: DecisionPending},
		{ID: uuid.New(), ModelID: m.ID, Track: TrackConstructor, Status: DecisionPending},
	}
	if err := s.repo.Create(ctx, m, tracks); err != nil {
		return Model{}, err
	}
	s.recordAudit(ctx, actorID, "MODEL_CREATE", m.ID, map[string]any{"name": m.Name, "season": m.Season})
	return m, nil
}

// Get returns a model with its approval tracks.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actorID int64) (Model, []ApprovalTrack, error) {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapViewModels); err != nil {
		return Model{}, nil, err
	}
	return s.repo.Get(ctx, id)
}

// List returns models filtered by season/collection.
func (s *Service) List(ctx context.Context, filters ListFilters, actorID int64) ([]Model, error) {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapViewModels); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filters)
}

// UpdateDetails edits the descriptive attributes of a model.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, input CreateInput, actorID int64) (Model, error) {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapEditModels); err != nil {
		return Model{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return Model{}, fmt.Errorf("%w: model name is required", ErrValidation)
	}
	m, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return Model{}, err
	}
	m.Name = strings.TrimSpace(input.Name)
	m.SKU = strings.TrimSpace(input.SKU)
	m.Season = input.Season
	m.Collection = input.Collection
	m.Gender = input.Gender
	m.AgeGroup = input.AgeGroup
	m.FactoryID = input.FactoryID
	if err := s.repo.UpdateDetails(ctx, m); err != nil {
		return Model{}, err
	}
	s.recordAudit(ctx, actorID, "MODEL_EDIT", id, map[string]any{"name": m.Name})
	return m, nil
}

// Delete removes a model and, via cascade, its tracks.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID int64) error {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapDeleteModels); err != nil {
		return err
	}
	m, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "MODEL_DELETE", id, map[string]any{"name": m.Name})
	return nil
}

// SetStatus moves the model to any of the six lifecycle values. The machine
// is deliberately not forward-only: production realities require manual
// correction, so rollback (e.g. pps back to ds) is allowed for any actor
// holding the status capability. Do not tighten this without a product
// decision.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, newStatus LifecycleStatus, actorID int64) (Model, error) {
	if err := s.gate.AuthorizeStatusChange(ctx, actorID); err != nil {
		return Model{}, err
	}
	if _, err := ParseLifecycleStatus(string(newStatus)); err != nil {
		return Model{}, fmt.Errorf("%w: lifecycle status %q", ErrValidation, newStatus)
	}
	m, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return Model{}, err
	}

	old := m.Status
	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, newStatus, actorID, now); err != nil {
		return Model{}, err
	}
	m.Status = newStatus
	m.StatusChangedBy = actorID
	m.StatusChangedAt = now

	s.recordAudit(ctx, actorID, "STATUS_CHANGE", id, map[string]any{"old": string(old), "new": string(newStatus)})
	s.notifyStatus(ctx, StatusEvent{
		ModelID:   id,
		ModelName: m.Name,
		OldStatus: old,
		NewStatus: newStatus,
		ActorID:   actorID,
		At:        now,
	})
	return m, nil
}

// RecordDecision stores a sign-off on one approval lane. The comment is
// optional for every status, including not_approved; when absent the stored
// comment is cleared. Setting the lane back to pending clears the decision
// fields entirely.
func (s *Service) RecordDecision(ctx context.Context, modelID uuid.UUID, track Track, newStatus DecisionStatus, comment *string, actorID int64) (ApprovalTrack, error) {
	if err := s.gate.AuthorizeApprovalDecision(ctx, actorID, string(track)); err != nil {
		return ApprovalTrack{}, err
	}
	if _, err := ParseDecisionStatus(string(newStatus)); err != nil {
		return ApprovalTrack{}, fmt.Errorf("%w: decision status %q", ErrValidation, newStatus)
	}

	m, _, err := s.repo.Get(ctx, modelID)
	if err != nil {
		return ApprovalTrack{}, err
	}
	t, err := s.repo.GetTrack(ctx, modelID, track)
	if err != nil {
		return ApprovalTrack{}, err
	}

	old := t.Status
	now := s.now()
	if newStatus == DecisionPending {
		t.Status = DecisionPending
		t.Comment = nil
		t.DecidedBy = nil
		t.DecidedAt = nil
	} else {
		t.Status = newStatus
		t.Comment = normalizeComment(comment)
		t.DecidedBy = &actorID
		t.DecidedAt = &now
	}
	if err := s.repo.UpdateTrack(ctx, t); err != nil {
		return ApprovalTrack{}, err
	}

	meta := map[string]any{"track": string(track), "old": string(old), "new": string(newStatus)}
	if t.Comment != nil {
		meta["comment"] = *t.Comment
	}
	s.recordAudit(ctx, actorID, "APPROVAL_DECISION", modelID, meta)
	s.notifyDecision(ctx, DecisionEvent{
		ModelID:   modelID,
		ModelName: m.Name,
		Track:     track,
		OldStatus: old,
		NewStatus: newStatus,
		ActorID:   actorID,
		Comment:   t.Comment,
		At:        now,
	})
	return t, nil
}

// History returns the audit trail for one model.
func (s *Service) History(ctx context.Context, id uuid.UUID, actorID int64) ([]shared.AuditLog, error) {
	if err := s.gate.Authorize(ctx, actorID, permissions.CapViewModels); err != nil {
		return nil, err
	}
	if _, _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.audit.ListForEntity(ctx, "model", id.String())
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, modelID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "model",
		EntityID: modelID.String(),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Error("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notifyStatus(ctx context.Context, event StatusEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.StatusChanged(ctx, event); err != nil {
		s.logger.Error("notify status change", slog.String("model_id", event.ModelID.String()), slog.Any("error", err))
	}
}

func (s *Service) notifyDecision(ctx context.Context, event DecisionEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.DecisionRecorded(ctx, event); err != nil {
		s.logger.Error("notify decision", slog.String("model_id", event.ModelID.String()), slog.Any("error", err))
	}
}

func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
