// Package models tracks apparel product models through the
// design-to-production pipeline: the coarse lifecycle status and the two
// independent sign-off lanes (buyer, constructor) attached to every model.
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus is the coarse production stage of a model.
type LifecycleStatus string

const (
	StatusDraft        LifecycleStatus = "draft"
	StatusUnderReview  LifecycleStatus = "under_review"
	StatusApproved     LifecycleStatus = "approved"
	StatusDS           LifecycleStatus = "ds"
	StatusPPS          LifecycleStatus = "pps"
	StatusInProduction LifecycleStatus = "in_production"
)

// ParseLifecycleStatus validates a lifecycle value from the outside.
func ParseLifecycleStatus(raw string) (LifecycleStatus, error) {
	switch LifecycleStatus(raw) {
	case StatusDraft, StatusUnderReview, StatusApproved, StatusDS, StatusPPS, StatusInProduction:
		return LifecycleStatus(raw), nil
	}
	return "", ErrValidation
}

// Track names one of the two sign-off lanes.
type Track string

const (
	TrackBuyer       Track = "buyer"
	TrackConstructor Track = "constructor"
)

// ParseTrack validates a track name from the outside.
func ParseTrack(raw string) (Track, error) {
	switch Track(raw) {
	case TrackBuyer, TrackConstructor:
		return Track(raw), nil
	}
	return "", ErrValidation
}

// DecisionStatus is the state of one approval track. A decided track may be
// re-decided to any other state; "decided" means "currently decided", not
// "immutable".
type DecisionStatus string

const (
	DecisionPending              DecisionStatus = "pending"
	DecisionApproved             DecisionStatus = "approved"
	DecisionApprovedWithComments DecisionStatus = "approved_with_comments"
	DecisionNotApproved          DecisionStatus = "not_approved"
)

// ParseDecisionStatus validates a decision value from the outside.
func ParseDecisionStatus(raw string) (DecisionStatus, error) {
	switch DecisionStatus(raw) {
	case DecisionPending, DecisionApproved, DecisionApprovedWithComments, DecisionNotApproved:
		return DecisionStatus(raw), nil
	}
	return "", ErrValidation
}

// ApprovalTrack is one sign-off lane on one model. Both lanes are created
// pending in the same transaction as the model and live as long as it does.
type ApprovalTrack struct {
	ID        uuid.UUID
	ModelID   uuid.UUID
	Track     Track
	Status    DecisionStatus
	Comment   *string
	DecidedBy *int64
	DecidedAt *time.Time
}

// Model is a product model. The lifecycle fields and the two approval
// tracks are siblings: neither drives the other.
type Model struct {
	ID         uuid.UUID
	Name       string
	SKU        string
	Season     string
	Collection string
	Gender     string
	AgeGroup   string
	FactoryID  *int64

	Status          LifecycleStatus
	StatusChangedBy int64
	StatusChangedAt time.Time

	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters narrows the model listing.
type ListFilters struct {
	Season     string
	Collection string
}

var (
	// ErrNotFound indicates the model or track does not exist.
	ErrNotFound = errors.New("models: not found")
	// ErrValidation indicates an unrecognized enum value or malformed input.
	ErrValidation = errors.New("models: invalid input")
)
