package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/rollcall/controller"
	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/roster"
	"github.com/nomis52/rollcall/rosterclient"
	"github.com/nomis52/rollcall/view"
)

func newTestServer(t *testing.T, store *Store, opts ...Option) *httptest.Server {
	t.Helper()
	svc, err := New(store, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func signupURL(base, activity, email string) string {
	return base + "/activities/" + url.PathEscape(activity) + "/signup?email=" + url.QueryEscape(email)
}

func doRequest(t *testing.T, method, u string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(method, u, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestStore_Seeded(t *testing.T) {
	r := NewSeededStore().Roster()

	require.Equal(t, 9, r.Len())
	assert.Equal(t, "Basketball Team", r.Names()[0])
	assert.Equal(t, "Gym Class", r.Names()[8])

	chess, ok := r.Get("Chess Club")
	require.True(t, ok)
	assert.Equal(t, 12, chess.MaxParticipants)
	assert.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, chess.Participants)

	art, _ := r.Get("Art Club")
	assert.Empty(t, art.Participants)
}

func TestStore_RosterIsSnapshot(t *testing.T) {
	s := NewSeededStore()
	before := s.Roster()

	_, err := s.SignUp("Chess Club", "new@mergington.edu")
	require.NoError(t, err)

	chess, _ := before.Get("Chess Club")
	assert.Len(t, chess.Participants, 2)
}

func TestStore_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		activity string
		email    string
		wantMsg  string
		wantErr  error
	}{
		{
			name:     "success",
			activity: "Art Club",
			email:    "taylor@mergington.edu",
			wantMsg:  "Signed up taylor@mergington.edu for Art Club",
		},
		{
			name:     "unknown activity",
			activity: "Science Club",
			email:    "sydney@mergington.edu",
			wantErr:  ErrActivityNotFound,
		},
		{
			name:     "enrolled elsewhere",
			activity: "Art Club",
			email:    "emma@mergington.edu",
			wantErr:  ErrAlreadySignedUp,
		},
		{
			name:     "enrolled here",
			activity: "Chess Club",
			email:    "michael@mergington.edu",
			wantErr:  ErrAlreadySignedUp,
		},
		{
			name:     "invalid email",
			activity: "Art Club",
			email:    "not-an-email",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "empty email",
			activity: "Art Club",
			email:    "",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "display name",
			activity: "Art Club",
			email:    "Taylor <taylor@mergington.edu>",
			wantErr:  ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeededStore()
			msg, err := s.SignUp(tt.activity, tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)

			a, _ := s.Roster().Get(tt.activity)
			assert.Contains(t, a.Participants, tt.email)
		})
	}
}

func TestStore_SignUpFull(t *testing.T) {
	s := NewStore(roster.Entry{Name: "Tiny", Activity: roster.Activity{
		MaxParticipants: 1,
		Participants:    []string{"a@x.edu"},
	}})

	_, err := s.SignUp("Tiny", "b@x.edu")
	assert.ErrorIs(t, err, ErrActivityFull)
}

func TestStore_Unregister(t *testing.T) {
	s := NewSeededStore()

	msg, err := s.Unregister("Chess Club", "michael@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Unregistered michael@mergington.edu from Chess Club", msg)

	chess, _ := s.Roster().Get("Chess Club")
	assert.Equal(t, []string{"daniel@mergington.edu"}, chess.Participants)

	_, err = s.Unregister("Chess Club", "michael@mergington.edu")
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = s.Unregister("Science Club", "michael@mergington.edu")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestStore_UnregisterFreesStudent(t *testing.T) {
	s := NewSeededStore()

	_, err := s.Unregister("Programming Class", "emma@mergington.edu")
	require.NoError(t, err)
	_, err = s.SignUp("Art Club", "emma@mergington.edu")
	assert.NoError(t, err)
}

func TestHandler_ListActivities(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())

	resp, err := http.Get(srv.URL + "/activities")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var r roster.Roster
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	assert.Equal(t, DefaultActivities()[0].Name, r.Names()[0])
	assert.Equal(t, 9, r.Len())
}

func TestHandler_RootRedirects(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/activities", resp.Header.Get("Location"))
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_SignUpAndUnregister(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())

	resp, body := doRequest(t, http.MethodPost, signupURL(srv.URL, "Art Club", "taylor@mergington.edu"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Signed up taylor@mergington.edu for Art Club", body["message"])

	resp, body = doRequest(t, http.MethodDelete, signupURL(srv.URL, "Art Club", "taylor@mergington.edu"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Unregistered taylor@mergington.edu from Art Club", body["message"])
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		activity   string
		email      string
		wantStatus int
		wantDetail string
	}{
		{"duplicate", http.MethodPost, "Art Club", "emma@mergington.edu", 400, "Student already signed up for an activity"},
		{"missing activity", http.MethodPost, "Science Club", "sydney@mergington.edu", 404, "Activity not found"},
		{"invalid email", http.MethodPost, "Art Club", "nope", 422, "Invalid email address"},
		{"not enrolled", http.MethodDelete, "Chess Club", "unknown@mergington.edu", 404, "Student not found in this activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, NewSeededStore())
			resp, body := doRequest(t, tt.method, signupURL(srv.URL, tt.activity, tt.email))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDetail, body["detail"])
		})
	}
}

func TestHandler_EscapedActivityName(t *testing.T) {
	store := NewStore(roster.Entry{Name: "Arts/Crafts 100%", Activity: roster.Activity{MaxParticipants: 5}})
	srv := newTestServer(t, store)

	resp, body := doRequest(t, http.MethodPost, signupURL(srv.URL, "Arts/Crafts 100%", "a+b@x.edu"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Signed up a+b@x.edu for Arts/Crafts 100%", body["message"])
}

func TestHandler_EchoesRequestID(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/activities", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestHandler_Metrics(t *testing.T) {
	registry, err := metrics.NewScrapeRegistry("rollcall")
	require.NoError(t, err)
	srv := newTestServer(t, NewSeededStore(), WithMetrics(registry))

	doRequest(t, http.MethodPost, signupURL(srv.URL, "Art Club", "taylor@mergington.edu"))
	doRequest(t, http.MethodPost, signupURL(srv.URL, "Art Club", "taylor@mergington.edu"))

	count, err := testutil.GatherAndCount(registry.PrometheusRegistry(), "rollcall_service_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClientAgainstService(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())
	client := rosterclient.New(srv.URL)
	ctx := context.Background()

	result, err := client.SignUp(ctx, "Chess Club", "alex@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Signed up alex@mergington.edu for Chess Club", result.Message)

	r, err := client.FetchRoster(ctx)
	require.NoError(t, err)
	chess, ok := r.Get("Chess Club")
	require.True(t, ok)
	assert.Equal(t, 9, chess.SpotsLeft())

	_, err = client.RemoveParticipant(ctx, "Chess Club", "nobody@mergington.edu")
	var serr *rosterclient.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.Equal(t, "Student not found in this activity", serr.Detail)
}

func TestControllerAgainstService_UnknownActivity(t *testing.T) {
	srv := newTestServer(t, NewSeededStore())
	page := view.NewPage("Activities")
	channel := notify.New(page)
	t.Cleanup(channel.Hide)

	ctrl, err := controller.New(rosterclient.New(srv.URL), page, channel)
	require.NoError(t, err)
	require.NoError(t, ctrl.Refresh(context.Background()))

	ctrl.SubmitSignup(context.Background(), &view.Event{Form: &view.FormData{
		Activity: "Chess Clb",
		Email:    "alex@mergington.edu",
	}})

	n, ok := channel.Current()
	require.True(t, ok)
	assert.Equal(t, notify.Notification{Text: "Activity not found", Kind: notify.KindError}, n)
}
