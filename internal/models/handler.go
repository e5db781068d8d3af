package models

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-works/atelier/internal/platform/httpx"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

// Handler serves the model workflow endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers model routes. Authorization happens in the service
// layer so every caller goes through the same gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/models", h.listModels)
	r.Post("/models", h.createModel)
	r.Get("/models/{modelID}", h.getModel)
	r.Put("/models/{modelID}", h.updateModel)
	r.Delete("/models/{modelID}", h.deleteModel)
	r.Get("/models/{modelID}/history", h.modelHistory)
	r.Put("/models/{modelID}/status", h.setStatus)

	// Approval decisions are human-paced; a tight per-IP limit keeps
	// scripted resubmission from hammering the decision path.
	decisionLimit := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.With(decisionLimit).Put("/models/{modelID}/approvals/{track}", h.recordDecision)
}

type modelPayload struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku,omitempty"`
	Season          string          `json:"season"`
	Collection      string          `json:"collection,omitempty"`
	Gender          string          `json:"gender,omitempty"`
	AgeGroup        string          `json:"age_group,omitempty"`
	FactoryID       *int64          `json:"factory_id,omitempty"`
	Status          LifecycleStatus `json:"status"`
	StatusChangedBy int64           `json:"status_changed_by"`
	StatusChangedAt time.Time       `json:"status_changed_at"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	Tracks          []trackPayload  `json:"approval_tracks,omitempty"`
}

type trackPayload struct {
	Track     Track          `json:"track"`
	Status    DecisionStatus `json:"status"`
	Comment   *string        `json:"comment"`
	DecidedBy *int64         `json:"decided_by"`
	DecidedAt *time.Time     `json:"decided_at"`
}

func toModelPayload(m Model, tracks []ApprovalTrack) modelPayload {
	payload := modelPayload{
		ID:              m.ID.String(),
		Name:            m.Name,
		SKU:             m.SKU,
		Season:          m.Season,
		Collection:      m.Collection,
		Gender:          m.Gender,
		AgeGroup:        m.AgeGroup,
		FactoryID:       m.FactoryID,
		Status:          m.Status,
		StatusChangedBy: m.StatusChangedBy,
		StatusChangedAt: m.StatusChangedAt,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
	for _, t := range tracks {
		payload.Tracks = append(payload.Tracks, trackPayload{
			Track:     t.Track,
			Status:    t.Status,
			Comment:   t.Comment,
			DecidedBy: t.DecidedBy,
			DecidedAt: t.DecidedAt,
		})
	}
	return payload
}

type createModelRequest struct {
	Name       string `json:"name" validate:"required"`
	SKU        string `json:"sku"`
	Season     string `json:"season" validate:"required"`
	Collection string `json:"collection"`
	Gender     string `json:"gender" validate:"omitempty,oneof=men women unisex kids"`
	AgeGroup   string `json:"age_group"`
	FactoryID  *int64 `json:"factory_id"`
}

func (h *Handler) createModel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req createModelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	m, err := h.service.Create(r.Context(), CreateInput{
		Name:       req.Name,
		SKU:        req.SKU,
		Season:     req.Season,
		Collection: req.Collection,
		Gender:     req.Gender,
		AgeGroup:   req.AgeGroup,
		FactoryID:  req.FactoryID,
	}, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toModelPayload(m, nil))
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	filters := ListFilters{
		Season:     r.URL.Query().Get("season"),
		Collection: r.URL.Query().Get("collection"),
	}
	list, err := h.service.List(r.Context(), filters, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	payload := make([]modelPayload, 0, len(list))
	for _, m := range list {
		payload = append(payload, toModelPayload(m, nil))
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) getModel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	m, tracks, err := h.service.Get(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toModelPayload(m, tracks))
}

func (h *Handler) updateModel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	var req createModelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	m, err := h.service.UpdateDetails(r.Context(), id, CreateInput{
		Name:       req.Name,
		SKU:        req.SKU,
		Season:     req.Season,
		Collection: req.Collection,
		Gender:     req.Gender,
		AgeGroup:   req.AgeGroup,
		FactoryID:  req.FactoryID,
	}, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toModelPayload(m, nil))
}

func (h *Handler) deleteModel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	status, err := ParseLifecycleStatus(req.Status)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown lifecycle status "+req.Status)
		return
	}
	m, err := h.service.SetStatus(r.Context(), id, status, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toModelPayload(m, nil))
}

type decisionRequest struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment"`
}

func (h *Handler) recordDecision(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	track, err := ParseTrack(chi.URLParam(r, "track"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown approval track")
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	status, err := ParseDecisionStatus(req.Status)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown decision status "+req.Status)
		return
	}

	t, err := h.service.RecordDecision(r.Context(), id, track, status, req.Comment, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trackPayload{
		Track:     t.Track,
		Status:    t.Status,
		Comment:   t.Comment,
		DecidedBy: t.DecidedBy,
		DecidedAt: t.DecidedAt,
	})
}

type historyEntry struct {
	ActorID int64          `json:"actor_id"`
	Action  string         `json:"action"`
	Meta    map[string]any `json:"meta,omitempty"`
	At      time.Time      `json:"at"`
}

func (h *Handler) modelHistory(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "modelID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid model id")
		return
	}
	logs, err := h.service.History(r.Context(), id, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	entries := make([]historyEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, historyEntry{ActorID: l.ActorID, Action: l.Action, Meta: l.Meta, At: l.At})
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, users.ErrNotFound):
		// The acting session points at a vanished account.
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("models handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
