// Package handlers provides HTTP handlers for the rollcall UI server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"context"
	"io"

	"github.com/nomis52/rollcall/config"
	"github.com/nomis52/rollcall/controller"
	"github.com/nomis52/rollcall/logging"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/roster"
	"github.com/nomis52/rollcall/server/cron"
	"github.com/nomis52/rollcall/view"
)

// Synchronizer runs user actions against the activities service.
type Synchronizer interface {
	Refresh(ctx context.Context) error
	SubmitSignup(ctx context.Context, ev *view.Event)
	HandleRosterClick(ctx context.Context, ev *view.Event)
}

// RosterProvider exposes the last fetched roster and the sync state.
type RosterProvider interface {
	Roster() roster.Roster
	LoadState() controller.LoadState
	MutationState() controller.MutationState
}

// Document is the page the server renders.
type Document interface {
	WriteHTML(w io.Writer) error
}

// NotificationProvider exposes the visible notification.
type NotificationProvider interface {
	Current() (notify.Notification, bool)
}

// DiagnosticsProvider exposes captured warnings and errors.
type DiagnosticsProvider interface {
	All() []logging.LogEntry
}

// ScheduleProvider reports the periodic refresh, or nil when none is set.
type ScheduleProvider interface {
	RefreshStatus() *cron.Status
}

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}
