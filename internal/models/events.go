package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DecisionEvent is emitted on every successful approval decision change.
// The notification collaborator delivers it; the core only exposes it.
type DecisionEvent struct {
	ModelID   uuid.UUID
	ModelName string
	Track     Track
	OldStatus DecisionStatus
	NewStatus DecisionStatus
	ActorID   int64
	Comment   *string
	At        time.Time
}

// StatusEvent is emitted on every lifecycle status change.
type StatusEvent struct {
	ModelID   uuid.UUID
	ModelName string
	OldStatus LifecycleStatus
	NewStatus LifecycleStatus
	ActorID   int64
	At        time.Time
}

// NotifierPort receives workflow events. Delivery failures must not fail
// the originating operation.
type NotifierPort interface {
	DecisionRecorded(ctx context.Context, event DecisionEvent) error
	StatusChanged(ctx context.Context, event StatusEvent) error
}
