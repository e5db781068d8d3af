package permissions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-works/atelier/internal/platform/httpx"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

// GatePort is the slice of the authorization gate the handler needs.
// Declared here to keep the gate package free to depend on permissions.
type GatePort interface {
	Authorize(ctx context.Context, actorID int64, c Capability) error
}

// Handler serves the permission endpoints for the user admin screens.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    GatePort
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate GatePort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers permission routes under /users/{userID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/{userID}/permissions", h.getPermissions)
	r.Put("/users/{userID}/permissions", h.putOverrides)
}

func (h *Handler) getPermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}

	// Everyone may read their own resolved set; reading others requires
	// the user admin capability.
	if targetID != actorID {
		if err := h.gate.Authorize(r.Context(), actorID, CapViewUsers); err != nil {
			h.respondError(w, err)
			return
		}
	}

	set, err := h.service.GetPermissions(r.Context(), targetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) putOverrides(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.gate.Authorize(r.Context(), actorID, CapEditUsers); err != nil {
		h.respondError(w, err)
		return
	}

	// Sparse body: present keys are set, explicit nulls clear back to the
	// role default, absent keys stay untouched.
	var body map[string]*bool
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	changes := make(map[Capability]*bool, len(body))
	for name, value := range body {
		c, err := ParseCapability(name)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown capability "+name)
			return
		}
		changes[c] = value
	}

	set, err := h.service.SetOverrides(r.Context(), targetID, changes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, users.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnknownCapability), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("permissions handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
