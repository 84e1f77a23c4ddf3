// Package rosterclient provides a client for the activities service HTTP API.
//
// Example usage:
//
//	client := rosterclient.New("http://localhost:8000")
//	r, err := client.FetchRoster(ctx)
//	res, err := client.SignUp(ctx, "Chess Club", "a@x.com")
package rosterclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/rollcall/roster"
)

const (
	// DefaultTimeout bounds a single request round trip.
	DefaultTimeout = 10 * time.Second

	requestIDHeader = "X-Request-Id"
	maxBodySize     = 1 << 20
)

// Result is the body of a successful mutation.
type Result struct {
	Message string `json:"message"`
}

// errorBody is the body of a failed request. Detail is decoded lazily since
// some services return structured validation errors there.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Client talks to the activities service.
// Use New() to create a client for a given base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the service at baseURL (e.g. "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRoster retrieves the full roster. The request bypasses any
// intermediate caches.
func (c *Client) FetchRoster(ctx context.Context) (roster.Roster, error) {
	const op = "fetch roster"

	req, err := c.newRequest(ctx, http.MethodGet, "/activities", nil)
	if err != nil {
		return roster.Roster{}, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, body, err := c.do(req, op)
	if err != nil {
		return roster.Roster{}, err
	}

	if !isSuccess(resp.StatusCode) {
		return roster.Roster{}, newServiceError(resp.StatusCode, body)
	}

	var r roster.Roster
	if err := json.Unmarshal(body, &r); err != nil {
		return roster.Roster{}, &NetworkError{Op: op, Err: fmt.Errorf("decoding roster: %w", err)}
	}
	return r, nil
}

// SignUp enrolls email in the named activity.
func (c *Client) SignUp(ctx context.Context, activity, email string) (Result, error) {
	return c.mutate(ctx, http.MethodPost, "sign up", activity, email)
}

// RemoveParticipant withdraws email from the named activity.
func (c *Client) RemoveParticipant(ctx context.Context, activity, email string) (Result, error) {
	return c.mutate(ctx, http.MethodDelete, "remove participant", activity, email)
}

func (c *Client) mutate(ctx context.Context, method, op, activity, email string) (Result, error) {
	query := url.Values{"email": []string{email}}
	req, err := c.newRequest(ctx, method, signupPath(activity), query)
	if err != nil {
		return Result{}, &NetworkError{Op: op, Err: err}
	}

	resp, body, err := c.do(req, op)
	if err != nil {
		return Result{}, err
	}

	if !isSuccess(resp.StatusCode) {
		return Result{}, newServiceError(resp.StatusCode, body)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, &NetworkError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return result, nil
}

// signupPath returns the escaped signup path for an activity. The name is
// escaped as one segment so a "/" in it cannot change the route.
func signupPath(activity string) string {
	return "/activities/" + url.PathEscape(activity) + "/signup"
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

// do sends req and reads the whole body. Any failure to obtain a complete
// response is a NetworkError.
func (c *Client) do(req *http.Request, op string) (*http.Response, []byte, error) {
	start := time.Now()
	requestID := req.Header.Get(requestIDHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			"op", op,
			"method", req.Method,
			"url", req.URL.String(),
			"request_id", requestID,
			"error", err,
		)
		return nil, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("request completed",
		"op", op,
		"method", req.Method,
		"url", req.URL.String(),
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, body, nil
}

func isSuccess(status int) bool {
	return status/100 == 2
}

func newServiceError(status int, body []byte) *ServiceError {
	serr := &ServiceError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return serr
	}
	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err == nil {
		serr.Detail = detail
	}
	return serr
}
