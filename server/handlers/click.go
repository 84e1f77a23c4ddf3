package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nomis52/rollcall/view"
)

// RosterClickHandler receives activated controls inside the roster and
// dispatches them to the synchronizer's single roster click handler.
type RosterClickHandler struct {
	logger *slog.Logger
	sync   Synchronizer
}

// NewRosterClickHandler creates a new RosterClickHandler.
func NewRosterClickHandler(logger *slog.Logger, sync Synchronizer) *RosterClickHandler {
	return &RosterClickHandler{
		logger: logger,
		sync:   sync,
	}
}

// ServeHTTP implements http.Handler.
func (h *RosterClickHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid form: %v", err),
		})
		return
	}

	value := r.PostForm.Get(view.ControlField)
	if value == "" {
		// Not a control; nothing to do.
		redirectHome(w, r)
		return
	}

	target, err := view.ControlFromValue(value)
	if err != nil {
		h.logger.Warn("rejected roster control", "value", value, "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	h.sync.HandleRosterClick(r.Context(), &view.Event{Target: target})
	redirectHome(w, r)
}
