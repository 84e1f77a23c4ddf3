package handlers

import (
	"log/slog"
	"net/http"
)

// RefreshHandler re-fetches the roster on demand.
type RefreshHandler struct {
	logger *slog.Logger
	sync   Synchronizer
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(logger *slog.Logger, sync Synchronizer) *RefreshHandler {
	return &RefreshHandler{
		logger: logger,
		sync:   sync,
	}
}

// ServeHTTP implements http.Handler. A failed fetch still redirects: the
// page itself shows the failure.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("refreshing roster")

	if err := h.sync.Refresh(r.Context()); err != nil {
		h.logger.Warn("manual refresh failed", "error", err)
	}

	redirectHome(w, r)
}
