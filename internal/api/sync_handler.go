// Package api implements the HTTP surface of the service. Handlers stay
// thin: they decode and validate requests, resolve the caller from the
// request context, and delegate to the sync orchestrator.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/calmhive/taskmirror/internal/api/shared"
	"github.com/calmhive/taskmirror/internal/calendar"
	"github.com/calmhive/taskmirror/internal/calsync"
)

// SyncHandler exposes the calendar sync lifecycle over HTTP.
type SyncHandler struct {
	orchestrator *calsync.Orchestrator
	logger       *slog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(orchestrator *calsync.Orchestrator, logger *slog.Logger) *SyncHandler {
	if orchestrator == nil {
		panic("orchestrator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		orchestrator: orchestrator,
		logger:       logger.With(slog.String("component", "sync_handler")),
	}
}

// DisableRequest is the body of POST /api/sync/disable.
type DisableRequest struct {
	DeleteEvents bool `json:"delete_events"`
}

// SyncAcceptedResponse acknowledges an accepted sync operation.
type SyncAcceptedResponse struct {
	Status string `json:"status"`
}

// Enable handles POST /api/sync/enable. It provisions the external
// calendar, marks sync enabled, and kicks off a bulk pass in the
// background. The response does not wait for the pass to finish.
func (h *SyncHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user ID")
		return
	}

	if err := h.orchestrator.Enable(r.Context(), userID); err != nil {
		if errors.Is(err, calendar.ErrCalendarGone) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway,
				"Calendar service rejected the request", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to enable sync", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SyncAcceptedResponse{Status: "enabled"})
}

// Disable handles POST /api/sync/disable. The body is optional; when
// delete_events is true the mirrored calendar is deleted along with all
// sync records.
func (h *SyncHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user ID")
		return
	}

	var req DisableRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := h.orchestrator.Disable(r.Context(), userID, req.DeleteEvents); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to disable sync", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SyncAcceptedResponse{Status: "disabled"})
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user ID")
		return
	}

	report, err := h.orchestrator.Status(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load sync status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Resync handles POST /api/sync/resync. It fires a bulk pass in the
// background; if one is already running for the user the trigger is
// dropped and the response still reports accepted.
func (h *SyncHandler) Resync(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user ID")
		return
	}

	h.orchestrator.TriggerBulkSync(userID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, SyncAcceptedResponse{Status: "resync started"})
}
