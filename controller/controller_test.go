package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/roster"
	"github.com/nomis52/rollcall/rosterclient"
	"github.com/nomis52/rollcall/view"
)

type call struct {
	method   string
	activity string
	email    string
}

// fakeTransport serves a mutable roster and records every call.
type fakeTransport struct {
	mu       sync.Mutex
	rosters  []roster.Roster
	fetchErr error
	mutErr   error
	calls    []call
}

func (f *fakeTransport) FetchRoster(ctx context.Context) (roster.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: "fetch"})
	if f.fetchErr != nil {
		return roster.Roster{}, f.fetchErr
	}
	r := f.rosters[0]
	if len(f.rosters) > 1 {
		f.rosters = f.rosters[1:]
	}
	return r, nil
}

func (f *fakeTransport) SignUp(ctx context.Context, activity, email string) (rosterclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: "signup", activity: activity, email: email})
	if f.mutErr != nil {
		return rosterclient.Result{}, f.mutErr
	}
	return rosterclient.Result{Message: "Signed up " + email + " for " + activity}, nil
}

func (f *fakeTransport) RemoveParticipant(ctx context.Context, activity, email string) (rosterclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: "remove", activity: activity, email: email})
	if f.mutErr != nil {
		return rosterclient.Result{}, f.mutErr
	}
	return rosterclient.Result{Message: "Unregistered " + email + " from " + activity}, nil
}

func (f *fakeTransport) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

type recordingNotifier struct {
	notes []notify.Notification
}

func (r *recordingNotifier) Notify(text string, kind notify.Kind) {
	r.notes = append(r.notes, notify.Notification{Text: text, Kind: kind})
}

func (r *recordingNotifier) last(t *testing.T) notify.Notification {
	t.Helper()
	require.NotEmpty(t, r.notes)
	return r.notes[len(r.notes)-1]
}

func chessRoster(participants ...string) roster.Roster {
	return roster.FromEntries(roster.Entry{
		Name: "Chess Club",
		Activity: roster.Activity{
			Description:     "Learn strategies",
			Schedule:        "Fridays",
			MaxParticipants: 2,
			Participants:    participants,
		},
	})
}

func newTestController(t *testing.T, transport *fakeTransport) (*Controller, *view.Page, *recordingNotifier) {
	t.Helper()
	page := view.NewPage("Activities")
	notifier := &recordingNotifier{}
	c, err := New(transport, page, notifier)
	require.NoError(t, err)
	return c, page, notifier
}

func TestRefresh_Success(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster("a@x.edu")}}
	c, page, notifier := newTestController(t, transport)

	assert.Equal(t, LoadStateIdle, c.LoadState())

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, LoadStateLoaded, c.LoadState())
	assert.Equal(t, 1, c.Roster().Len())
	assert.Contains(t, page.ListText(), "Chess Club")
	assert.Contains(t, page.ListText(), "Availability: 1 spots left")
	assert.Empty(t, notifier.notes)
}

func TestRefresh_Failure(t *testing.T) {
	fetchErr := &rosterclient.NetworkError{Op: "fetch roster", Err: errors.New("connection refused")}
	transport := &fakeTransport{fetchErr: fetchErr}
	c, page, notifier := newTestController(t, transport)

	err := c.Refresh(context.Background())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, fetchErr)

	assert.Equal(t, LoadStateFailed, c.LoadState())
	assert.Equal(t, "Failed to load activities. Please try again later.", page.ListText())
	assert.Empty(t, notifier.notes, "load failures are not notified")
}

func TestRefresh_FailureKeepsSelectOptions(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, page, _ := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	transport.fetchErr = errors.New("boom")
	require.Error(t, c.Refresh(context.Background()))

	opts := page.SelectOptions()
	require.Len(t, opts, 2)
	assert.Equal(t, "Chess Club", opts[1].Value)
}

func TestSubmitSignup_Success(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{
		chessRoster(),
		chessRoster("new@x.edu"),
	}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	page.SetFormValues("Chess Club", "new@x.edu")

	ev := &view.Event{}
	c.SubmitSignup(context.Background(), ev)

	assert.True(t, ev.DefaultPrevented())
	assert.Equal(t, []string{"fetch", "signup", "fetch"}, transport.methods())
	assert.Equal(t, notify.Notification{Text: "Signed up new@x.edu for Chess Club", Kind: notify.KindSuccess}, notifier.last(t))

	activity, email := page.FormValues()
	assert.Empty(t, activity)
	assert.Empty(t, email)

	assert.Contains(t, page.ListText(), "new@x.edu")
	assert.Equal(t, MutationStateIdle, c.MutationState())
}

func TestSubmitSignup_ServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "detail shown",
			err:  &rosterclient.ServiceError{StatusCode: 400, Detail: "Student already signed up for an activity"},
			want: "Student already signed up for an activity",
		},
		{
			name: "missing detail",
			err:  &rosterclient.ServiceError{StatusCode: 500},
			want: "An error occurred",
		},
		{
			name: "network failure",
			err:  &rosterclient.NetworkError{Op: "sign up", Err: errors.New("dial tcp: refused")},
			want: "Failed to sign up. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}, mutErr: tt.err}
			c, page, notifier := newTestController(t, transport)
			require.NoError(t, c.Refresh(context.Background()))

			page.SetFormValues("Chess Club", "a@x.edu")
			c.SubmitSignup(context.Background(), &view.Event{})

			assert.Equal(t, notify.Notification{Text: tt.want, Kind: notify.KindError}, notifier.last(t))
			assert.Equal(t, []string{"fetch", "signup"}, transport.methods(), "no re-fetch after failure")

			activity, email := page.FormValues()
			assert.Equal(t, "Chess Club", activity, "form keeps its values after failure")
			assert.Equal(t, "a@x.edu", email)
		})
	}
}

func TestSubmitSignup_MissingFields(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	page.SetFormValues("", "a@x.edu")
	c.SubmitSignup(context.Background(), &view.Event{})

	assert.Equal(t, notify.KindError, notifier.last(t).Kind)
	assert.Equal(t, []string{"fetch"}, transport.methods())
}

func TestSubmitSignup_EventForm(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	page.SetFormValues("Chess Club", "page@x.edu")
	c.SubmitSignup(context.Background(), &view.Event{Form: &view.FormData{
		Activity: "Chess Clb",
		Email:    "posted@x.edu",
	}})

	transport.mu.Lock()
	calls := append([]call(nil), transport.calls...)
	transport.mu.Unlock()
	require.Len(t, calls, 3)
	assert.Equal(t, call{method: "signup", activity: "Chess Clb", email: "posted@x.edu"}, calls[1])
	assert.Equal(t, notify.KindSuccess, notifier.last(t).Kind)

	activity, email := page.FormValues()
	assert.Equal(t, "Chess Club", activity, "page form untouched by posted submissions")
	assert.Equal(t, "page@x.edu", email)
}

func TestSubmitSignup_EventFormMissingFields(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	page.SetFormValues("Chess Club", "page@x.edu")
	c.SubmitSignup(context.Background(), &view.Event{Form: &view.FormData{Activity: "Chess Club"}})

	assert.Equal(t, notify.Notification{Text: missingFieldsMessage, Kind: notify.KindError}, notifier.last(t))
	assert.Equal(t, []string{"fetch"}, transport.methods())
}

func TestHandleRosterClick_Removal(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{
		chessRoster("a b+c@x.edu"),
		chessRoster(),
	}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	controls := page.RemovalControls()
	require.Len(t, controls, 1)

	// Dispatch on the button's text child to exercise delegation.
	c.HandleRosterClick(context.Background(), &view.Event{Target: controls[0].FirstChild})

	require.Len(t, transport.calls, 3)
	assert.Equal(t, call{method: "remove", activity: "Chess Club", email: "a b+c@x.edu"}, transport.calls[1])
	assert.Equal(t, "fetch", transport.calls[2].method)
	assert.Equal(t, notify.Notification{Text: "Unregistered a b+c@x.edu from Chess Club", Kind: notify.KindSuccess}, notifier.last(t))
	assert.Contains(t, page.ListText(), "No participants yet")
}

func TestHandleRosterClick_OutsideControl(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster("a@x.edu")}}
	c, _, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	c.HandleRosterClick(context.Background(), &view.Event{})

	assert.Equal(t, []string{"fetch"}, transport.methods())
	assert.Empty(t, notifier.notes)
}

func TestHandleRosterClick_MalformedControl(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, _, notifier := newTestController(t, transport)

	control, err := view.ControlFromValue("Chess%ZZ:a%40x.edu")
	require.NoError(t, err)

	c.HandleRosterClick(context.Background(), &view.Event{Target: control})

	assert.Empty(t, transport.methods())
	assert.Equal(t, notify.Notification{Text: "Failed to remove participant. Please try again.", Kind: notify.KindError}, notifier.last(t))
}

func TestRequestRemoval_ServiceError(t *testing.T) {
	transport := &fakeTransport{
		rosters: []roster.Roster{chessRoster()},
		mutErr:  &rosterclient.ServiceError{StatusCode: 404, Detail: "Student not found in this activity"},
	}
	c, _, notifier := newTestController(t, transport)

	c.RequestRemoval(context.Background(), "Chess Club", "ghost@x.edu")

	assert.Equal(t, notify.Notification{Text: "Student not found in this activity", Kind: notify.KindError}, notifier.last(t))
	assert.Equal(t, []string{"remove"}, transport.methods())
}

func TestRequestRemoval_RefreshFailureAfterSuccess(t *testing.T) {
	transport := &fakeTransport{rosters: []roster.Roster{chessRoster("a@x.edu")}}
	c, page, notifier := newTestController(t, transport)
	require.NoError(t, c.Refresh(context.Background()))

	transport.fetchErr = errors.New("down")
	c.RequestRemoval(context.Background(), "Chess Club", "a@x.edu")

	assert.Equal(t, notify.KindSuccess, notifier.last(t).Kind)
	assert.Equal(t, LoadStateFailed, c.LoadState())
	assert.Equal(t, "Failed to load activities. Please try again later.", page.ListText())
}

func TestController_WithNotificationChannel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	page := view.NewPage("Activities")
	ch := notify.New(page, notify.WithClock(clock))

	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	c, err := New(transport, page, ch)
	require.NoError(t, err)
	require.NoError(t, c.Refresh(context.Background()))

	page.SetFormValues("Chess Club", "a@x.edu")
	c.SubmitSignup(context.Background(), &view.Event{})

	text, class := page.Message()
	assert.Equal(t, "Signed up a@x.edu for Chess Club", text)
	assert.Equal(t, "message success", class)

	clock.Advance(notify.DefaultDuration)

	assert.Eventually(t, func() bool {
		_, class := page.Message()
		return class == "message hidden"
	}, time.Second, 10*time.Millisecond)
}

func TestController_Metrics(t *testing.T) {
	registry, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)

	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	page := view.NewPage("Activities")
	c, err := New(transport, page, &recordingNotifier{}, WithMetrics(registry))
	require.NoError(t, err)

	require.NoError(t, c.Refresh(context.Background()))
	c.RequestRemoval(context.Background(), "Chess Club", "a@x.edu")

	transport.fetchErr = errors.New("down")
	require.Error(t, c.Refresh(context.Background()))

	// One series per result label.
	n, err := testutil.GatherAndCount(registry.PrometheusRegistry(), "roster_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = testutil.GatherAndCount(registry.PrometheusRegistry(), "roster_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = testutil.GatherAndCount(registry.PrometheusRegistry(), "roster_activities")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_DuplicateMetrics(t *testing.T) {
	registry, err := metrics.NewScrapeRegistry("")
	require.NoError(t, err)

	transport := &fakeTransport{rosters: []roster.Roster{chessRoster()}}
	_, err = New(transport, view.NewPage("A"), &recordingNotifier{}, WithMetrics(registry))
	require.NoError(t, err)

	_, err = New(transport, view.NewPage("B"), &recordingNotifier{}, WithMetrics(registry))
	assert.Error(t, err)
}

func TestStates_String(t *testing.T) {
	assert.Equal(t, "idle", LoadStateIdle.String())
	assert.Equal(t, "loading", LoadStateLoading.String())
	assert.Equal(t, "loaded", LoadStateLoaded.String())
	assert.Equal(t, "load_failed", LoadStateFailed.String())
	assert.Equal(t, "submitting", MutationStateSubmitting.String())

	b, err := LoadStateLoaded.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"loaded"`, string(b))
}
