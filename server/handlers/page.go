package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
)

// PageHandler serves the rendered roster page.
type PageHandler struct {
	logger *slog.Logger
	doc    Document
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(logger *slog.Logger, doc Document) *PageHandler {
	return &PageHandler{
		logger: logger,
		doc:    doc,
	}
}

// ServeHTTP implements http.Handler.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := h.doc.WriteHTML(&buf); err != nil {
		h.logger.Error("failed to render page", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to render page"})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
