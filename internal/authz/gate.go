// Package authz is the single checkpoint every mutating operation passes
// through. It combines the resolved permission view with the actor's
// activation flag; route middleware and services both funnel into Gate so
// that UI-side gating is never the enforcement boundary.
package authz

import (
	"context"
	"fmt"

	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/platform/httpx"
)

// Track names one approval lane on a model.
const (
	TrackBuyer       = "buyer"
	TrackConstructor = "constructor"
)

var (
	// ErrForbidden is returned for every denied check.
	ErrForbidden = fmt.Errorf("authz: %w", httpx.ErrForbidden)
	// ErrUnknownTrack is returned for approval lanes outside buyer/constructor.
	ErrUnknownTrack = fmt.Errorf("authz: unknown approval track: %w", httpx.ErrValidation)
)

// PermissionsPort provides resolved grants for actors.
type PermissionsPort interface {
	GetGrant(ctx context.Context, actorID int64) (permissions.Grant, error)
}

// Gate performs synchronous, deterministic capability checks. No retries,
// no caching beyond what the permissions service explicitly invalidates.
type Gate struct {
	perms PermissionsPort
}

// NewGate constructs a Gate.
func NewGate(perms PermissionsPort) *Gate {
	return &Gate{perms: perms}
}

// Authorize allows the action iff the actor exists, is active, and the
// resolved permission set grants the capability. A deactivated actor is
// denied every capability regardless of stored permissions.
func (g *Gate) Authorize(ctx context.Context, actorID int64, c permissions.Capability) error {
	grant, err := g.perms.GetGrant(ctx, actorID)
	if err != nil {
		return err
	}
	if !grant.IsActive {
		return fmt.Errorf("%w: account deactivated", ErrForbidden)
	}
	if !grant.Set.Get(c) {
		return fmt.Errorf("%w: missing %s", ErrForbidden, c)
	}
	return nil
}

// AuthorizeApprovalDecision checks the per-track sign-off capability. The
// buyer and constructor capabilities are independent; holding one says
// nothing about the other.
func (g *Gate) AuthorizeApprovalDecision(ctx context.Context, actorID int64, track string) error {
	switch track {
	case TrackBuyer:
		return g.Authorize(ctx, actorID, permissions.CapApproveAsBuyer)
	case TrackConstructor:
		return g.Authorize(ctx, actorID, permissions.CapApproveAsConstructor)
	}
	return fmt.Errorf("%w: %q", ErrUnknownTrack, track)
}

// AuthorizeStatusChange checks the lifecycle edit capability.
func (g *Gate) AuthorizeStatusChange(ctx context.Context, actorID int64) error {
	return g.Authorize(ctx, actorID, permissions.CapEditModelStatus)
}
