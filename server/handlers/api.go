package handlers

import (
	"net/http"

	"github.com/nomis52/rollcall/controller"
	"github.com/nomis52/rollcall/logging"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/roster"
	"github.com/nomis52/rollcall/server/cron"
	"github.com/nomis52/rollcall/server/types"
)

// RosterResponse is the JSON response for /api/roster.
type RosterResponse struct {
	LoadState     controller.LoadState     `json:"load_state"`
	MutationState controller.MutationState `json:"mutation_state"`
	Activities    roster.Roster            `json:"activities"`
}

// RosterHandler handles requests for the last fetched roster.
type RosterHandler struct {
	provider RosterProvider
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(provider RosterProvider) *RosterHandler {
	return &RosterHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *RosterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RosterResponse{
		LoadState:     h.provider.LoadState(),
		MutationState: h.provider.MutationState(),
		Activities:    h.provider.Roster(),
	})
}

// NotificationResponse is the JSON response for /api/notification.
type NotificationResponse struct {
	Visible      bool                 `json:"visible"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// NotificationHandler handles requests for the visible notification.
type NotificationHandler struct {
	provider NotificationProvider
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(provider NotificationProvider) *NotificationHandler {
	return &NotificationHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp NotificationResponse
	if n, ok := h.provider.Current(); ok {
		resp.Visible = true
		resp.Notification = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// DiagnosticsResponse is the JSON response for /api/diagnostics.
type DiagnosticsResponse struct {
	Entries []logging.LogEntry `json:"entries"`
	Refresh *cron.Status       `json:"refresh,omitempty"`
}

// DiagnosticsHandler handles requests for captured warnings and errors.
type DiagnosticsHandler struct {
	logs     DiagnosticsProvider
	schedule ScheduleProvider
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(logs DiagnosticsProvider, schedule ScheduleProvider) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		logs:     logs,
		schedule: schedule,
	}
}

// ServeHTTP implements http.Handler.
func (h *DiagnosticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries := h.logs.All()
	if entries == nil {
		entries = []logging.LogEntry{}
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{
		Entries: entries,
		Refresh: h.schedule.RefreshStatus(),
	})
}

// ServerHandler handles requests for the server's own properties.
type ServerHandler struct {
	props types.ServerProperties
}

// NewServerHandler creates a new ServerHandler.
func NewServerHandler(props types.ServerProperties) *ServerHandler {
	return &ServerHandler{props: props}
}

// ServeHTTP implements http.Handler.
func (h *ServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.props)
}
