package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fabriclabs/dcdash/internal/api/middleware"
	"github.com/fabriclabs/dcdash/internal/auth"
	"github.com/fabriclabs/dcdash/internal/refresh"
)

// RefreshHandler exposes refresh control and status polling.
type RefreshHandler struct {
	orchestrator *refresh.Orchestrator
	logger       *slog.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(orchestrator *refresh.Orchestrator, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Trigger starts a background refresh. A refresh already in flight yields
// 409 and leaves the running refresh untouched.
func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		h.logger.Info("refresh requested", "user", auth.EmailFromClaims(session.UserData))
	}

	if err := h.orchestrator.Trigger(); err != nil {
		if errors.Is(err, refresh.ErrAlreadyRunning) {
			WriteJSON(w, http.StatusConflict, map[string]string{
				"status":  "in_progress",
				"message": "Refresh already in progress",
			})
			return
		}
		h.logger.Error("failed to trigger refresh", "error", err)
		WriteInternalError(w, "failed to trigger refresh")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Data refresh started",
	})
}

// Status returns the current refresh status snapshot. No auth required:
// the frontend polls this while a refresh runs.
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}
