// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventra-labs/eventra/internal/model"
	"github.com/eventra-labs/eventra/internal/repository"
	"github.com/eventra-labs/eventra/internal/service"
	"github.com/go-chi/chi/v5"
)

// ConflictHandler holds all HTTP handlers for the conflict engine API.
type ConflictHandler struct {
	detection  *service.ConflictService
	resolution *service.ResolutionEngine
	capacity   *service.CapacityWaitlistManager
	analytics  *service.AnalyticsAggregator
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(
	detection *service.ConflictService,
	resolution *service.ResolutionEngine,
	capacity *service.CapacityWaitlistManager,
	analytics *service.AnalyticsAggregator,
) *ConflictHandler {
	return &ConflictHandler{
		detection:  detection,
		resolution: resolution,
		capacity:   capacity,
		analytics:  analytics,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func errStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

// batchResponse is the envelope for partially successful batch operations.
type batchResponse[T any] struct {
	Results []T      `json:"results"`
	Errors  []string `json:"errors"`
}

// ─── Detection ────────────────────────────────────────────────────────────────

// DetectConflicts handles POST /events/{id}/conflicts/detect
// Runs all four detectors over the event and returns the newly stored
// conflicts. An empty array means the schedule is consistent (or nothing
// new was found).
func (h *ConflictHandler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	conflicts, err := h.detection.DetectAllConflicts(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "conflict detection failed")
		return
	}

	if conflicts == nil {
		conflicts = []model.ScheduleConflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

// ListConflicts handles GET /events/{id}/conflicts
// Returns all active conflicts for the event, any resolution state.
func (h *ConflictHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	conflicts, err := h.detection.ListConflicts(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conflicts")
		return
	}

	if conflicts == nil {
		conflicts = []model.ScheduleConflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

// ─── Resolution ───────────────────────────────────────────────────────────────

// ResolveConflict handles POST /conflicts/{id}/resolve
// Records a manual resolution and marks the conflict RESOLVED.
func (h *ConflictHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.ResolveConflictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resolved, err := h.resolution.ResolveConflict(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "conflict not found")
		case errors.Is(err, service.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "conflict is already resolved")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// AutoResolveConflicts handles POST /conflicts/auto-resolve
// Sweeps all auto-resolvable unresolved conflicts; per-item failures are
// listed in the response alongside the successes.
func (h *ConflictHandler) AutoResolveConflicts(w http.ResponseWriter, r *http.Request) {
	resolved, failures, err := h.resolution.AutoResolveConflicts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "auto-resolution failed")
		return
	}

	if resolved == nil {
		resolved = []model.ScheduleConflict{}
	}
	writeJSON(w, http.StatusOK, batchResponse[model.ScheduleConflict]{
		Results: resolved,
		Errors:  errStrings(failures),
	})
}

// ─── Waitlist ─────────────────────────────────────────────────────────────────

// PromoteFromWaitlist handles POST /sessions/{id}/waitlist/promote
// Promotes the supplied waitlisted registrations into open capacity.
func (h *ConflictHandler) PromoteFromWaitlist(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req model.PromoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	promoted, err := h.capacity.PromoteFromWaitlist(r.Context(), sessionID, req.RegistrationIDs, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, service.PromotionOutcome{SessionID: sessionID, Promoted: promoted})
}

// AutoPromote handles POST /waitlist/auto-promote
// Runs the FIFO auto-promotion sweep across all eligible sessions.
func (h *ConflictHandler) AutoPromote(w http.ResponseWriter, r *http.Request) {
	outcomes, failures, err := h.capacity.AutoPromoteEligibleSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "auto-promotion failed")
		return
	}

	if outcomes == nil {
		outcomes = []service.PromotionOutcome{}
	}
	writeJSON(w, http.StatusOK, batchResponse[service.PromotionOutcome]{
		Results: outcomes,
		Errors:  errStrings(failures),
	})
}

// ─── Analytics ────────────────────────────────────────────────────────────────

// ConflictSummary handles GET /events/{id}/conflicts/summary
func (h *ConflictHandler) ConflictSummary(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	summary, err := h.analytics.ConflictSummary(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ConflictAnalytics handles GET /events/{id}/conflicts/analytics
func (h *ConflictHandler) ConflictAnalytics(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	analytics, err := h.analytics.ConflictAnalytics(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
