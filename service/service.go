package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/rollcall/metrics"
)

// RequestIDHeader carries the request id. An id sent by the client is
// echoed back, otherwise a new one is generated.
const RequestIDHeader = "X-Request-Id"

// MessageResponse is the body of a successful mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// DetailResponse is the body of a rejected request.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// Service serves the activities REST API from a Store.
type Service struct {
	store    *Store
	logger   *slog.Logger
	requests metrics.CounterVec
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics counts requests by operation and status in registry.
func WithMetrics(registry metrics.Registry) Option {
	return func(s *Service) error {
		requests, err := registry.NewCounterVec(prometheus.CounterOpts{
			Name: "service_requests_total",
			Help: "Activities service requests by operation and status code",
		}, []string{"op", "status"})
		if err != nil {
			return err
		}
		s.requests = requests
		return nil
	}
}

// New creates a Service backed by store.
func New(store *Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the service's routes.
//
//   - GET / - Redirects to /activities
//   - GET /activities - Every activity, in store order
//   - POST /activities/{activity}/signup?email= - Enrolls a student
//   - DELETE /activities/{activity}/signup?email= - Removes a student
//   - GET /health - Returns "ok"
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/activities", http.StatusTemporaryRedirect)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", s.listActivities)
		r.Post("/{activity}/signup", s.signUp)
		r.Delete("/{activity}/signup", s.unregister)
	})
	return r
}

func (s *Service) listActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Roster())
	s.count("list", http.StatusOK)
}

func (s *Service) signUp(w http.ResponseWriter, r *http.Request) {
	activity := activityParam(r)
	email := r.URL.Query().Get("email")
	msg, err := s.store.SignUp(activity, email)
	s.respond(w, r, "signup", msg, err)
}

func (s *Service) unregister(w http.ResponseWriter, r *http.Request) {
	activity := activityParam(r)
	email := r.URL.Query().Get("email")
	msg, err := s.store.Unregister(activity, email)
	s.respond(w, r, "unregister", msg, err)
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, op, msg string, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		var serr *Error
		if errors.As(err, &serr) {
			status = serr.Status
		}
		s.logger.Info("request rejected",
			"op", op,
			"request_id", w.Header().Get(RequestIDHeader),
			"status", status,
			"detail", err.Error(),
		)
		writeJSON(w, status, DetailResponse{Detail: err.Error()})
		s.count(op, status)
		return
	}

	s.logger.Info("roster updated",
		"op", op,
		"request_id", w.Header().Get(RequestIDHeader),
		"message", msg,
	)
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
	s.count(op, http.StatusOK)
}

func (s *Service) count(op string, status int) {
	if s.requests == nil {
		return
	}
	s.requests.With(prometheus.Labels{"op": op, "status": strconv.Itoa(status)}).Inc()
}

// activityParam returns the decoded {activity} segment. chi matches on the
// raw path when the request path holds escaped characters such as %2F.
func activityParam(r *http.Request) string {
	activity := chi.URLParam(r, "activity")
	if r.URL.RawPath == "" {
		return activity
	}
	if decoded, err := url.PathUnescape(activity); err == nil {
		return decoded
	}
	return activity
}

func (s *Service) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Service) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", w.Header().Get(RequestIDHeader),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
