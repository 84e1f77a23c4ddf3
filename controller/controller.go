// Package controller synchronizes the rendered roster with the activities
// service.
//
// The Controller never edits the roster locally. Every successful mutation
// is followed by a full re-fetch and re-render, so the page always shows the
// service's state.
//
// # States
//
// Loading runs Idle → Loading → {Loaded, LoadFailed}. Mutations run
// orthogonally Idle → Submitting → Idle. Overlapping operations are not
// serialized: whichever fetch response arrives last is what the page shows.
//
// # Example
//
//	page := view.NewPage("Activities")
//	ch := notify.New(page)
//	ctrl, err := controller.New(rosterclient.New(url), page, ch)
//	if err != nil {
//	    return err
//	}
//	ctrl.Refresh(ctx)
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/roster"
	"github.com/nomis52/rollcall/rosterclient"
	"github.com/nomis52/rollcall/view"
)

const (
	fallbackMessage       = "An error occurred"
	signupNetworkMessage  = "Failed to sign up. Please try again."
	removalNetworkMessage = "Failed to remove participant. Please try again."
	missingFieldsMessage  = "Please select an activity and enter an email."
)

// Transport performs requests against the activities service.
type Transport interface {
	FetchRoster(ctx context.Context) (roster.Roster, error)
	SignUp(ctx context.Context, activity, email string) (rosterclient.Result, error)
	RemoveParticipant(ctx context.Context, activity, email string) (rosterclient.Result, error)
}

// View is the document the controller renders into.
type View interface {
	Render(roster.Roster)
	RenderLoadFailure()
	FormValues() (activity, email string)
	ResetForm()
}

// Notifier reports the outcome of user actions.
type Notifier interface {
	Notify(text string, kind notify.Kind)
}

// Controller ties the transport, view and notifier together.
type Controller struct {
	transport Transport
	view      View
	notifier  Notifier
	logger    *slog.Logger
	metrics   *controllerMetrics

	mu        sync.Mutex
	roster    roster.Roster
	loadState LoadState
	inFlight  int
}

// Option configures a Controller.
type Option func(*Controller) error

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics registers the controller's metrics with registry.
func WithMetrics(registry metrics.Registry) Option {
	return func(c *Controller) error {
		m, err := newControllerMetrics(registry)
		if err != nil {
			return err
		}
		c.metrics = m
		return nil
	}
}

// New creates a Controller with an empty roster.
func New(transport Transport, v View, notifier Notifier, opts ...Option) (*Controller, error) {
	c := &Controller{
		transport: transport,
		view:      v,
		notifier:  notifier,
		logger:    slog.Default(),
		roster:    roster.New(),
		loadState: LoadStateIdle,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Roster returns the last successfully fetched roster.
func (c *Controller) Roster() roster.Roster {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster
}

// LoadState returns the state of the most recent fetch.
func (c *Controller) LoadState() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadState
}

// MutationState reports whether a mutation is in flight.
func (c *Controller) MutationState() MutationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		return MutationStateSubmitting
	}
	return MutationStateIdle
}

// Refresh fetches the roster and renders it. On failure the roster
// container shows a failure message instead; nothing is notified.
func (c *Controller) Refresh(ctx context.Context) error {
	c.setLoadState(LoadStateLoading)

	r, err := c.transport.FetchRoster(ctx)
	if err != nil {
		c.logger.Error("error fetching activities", "error", err)
		c.metrics.fetch(false)

		c.mu.Lock()
		c.loadState = LoadStateFailed
		c.view.RenderLoadFailure()
		c.mu.Unlock()
		return &LoadError{Err: err}
	}

	c.mu.Lock()
	c.roster = r
	c.loadState = LoadStateLoaded
	c.view.Render(r)
	c.mu.Unlock()

	c.metrics.fetch(true)
	c.metrics.activities(r.Len())
	c.logger.Debug("roster rendered", "activities", r.Len())
	return nil
}

// SubmitSignup handles a signup form submission. It reads the activity and
// email from the event's form data, or from the page's form when the event
// carries none, signs up, and on success clears the page's form and
// re-fetches the roster.
func (c *Controller) SubmitSignup(ctx context.Context, ev *view.Event) {
	ev.PreventDefault()

	var activity, email string
	if ev.Form != nil {
		activity, email = ev.Form.Activity, ev.Form.Email
	} else {
		activity, email = c.view.FormValues()
	}
	if activity == "" || email == "" {
		c.notifier.Notify(missingFieldsMessage, notify.KindError)
		return
	}

	c.beginMutation()
	res, err := c.transport.SignUp(ctx, activity, email)
	c.endMutation()

	if err != nil {
		c.reportMutationError(opSignup, err, signupNetworkMessage, "activity", activity, "email", email)
		return
	}

	c.metrics.mutation(opSignup, true)
	c.notifier.Notify(res.Message, notify.KindSuccess)
	if ev.Form == nil {
		c.view.ResetForm()
	}
	_ = c.Refresh(ctx)
}

// HandleRosterClick is the single handler for clicks anywhere in the roster
// container. Clicks outside a removal control are ignored.
func (c *Controller) HandleRosterClick(ctx context.Context, ev *view.Event) {
	removal, ok, err := view.RemovalTarget(ev.Target)
	if !ok {
		return
	}
	if err != nil {
		c.logger.Error("error decoding removal control", "error", err)
		c.notifier.Notify(removalNetworkMessage, notify.KindError)
		return
	}
	c.RequestRemoval(ctx, removal.Activity, removal.Email)
}

// RequestRemoval withdraws email from activity and on success re-fetches
// the roster.
func (c *Controller) RequestRemoval(ctx context.Context, activity, email string) {
	c.beginMutation()
	res, err := c.transport.RemoveParticipant(ctx, activity, email)
	c.endMutation()

	if err != nil {
		c.reportMutationError(opRemove, err, removalNetworkMessage, "activity", activity, "email", email)
		return
	}

	c.metrics.mutation(opRemove, true)
	c.notifier.Notify(res.Message, notify.KindSuccess)
	_ = c.Refresh(ctx)
}

// reportMutationError surfaces a failed mutation. A service error shows its
// detail, anything else shows networkMessage.
func (c *Controller) reportMutationError(op string, err error, networkMessage string, attrs ...any) {
	c.metrics.mutation(op, false)

	var serr *rosterclient.ServiceError
	if errors.As(err, &serr) {
		c.logger.Warn("service rejected request", append([]any{"op", op, "error", err}, attrs...)...)
		msg := serr.Detail
		if msg == "" {
			msg = fallbackMessage
		}
		c.notifier.Notify(msg, notify.KindError)
		return
	}

	c.logger.Error("request failed", append([]any{"op", op, "error", err}, attrs...)...)
	c.notifier.Notify(networkMessage, notify.KindError)
}

func (c *Controller) setLoadState(s LoadState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadState = s
}

func (c *Controller) beginMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
}

func (c *Controller) endMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
}
