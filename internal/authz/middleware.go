package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/platform/httpx"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

// Middleware wires gate checks in front of HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// Require ensures the current session user holds the capability. The check
// runs server side on every request; button-level gating in the UI is a
// convenience only.
func (m Middleware) Require(c permissions.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := shared.ActorIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			err := m.Gate.Authorize(r.Context(), actorID, c)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrForbidden), errors.Is(err, users.ErrNotFound):
				// A vanished actor id in a live session is denied, not 404ed.
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
			default:
				if m.Logger != nil {
					m.Logger.Error("authorize request", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			}
		})
	}
}
