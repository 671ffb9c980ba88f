// Package devserver serves a bx24.Client over the Bitrix24 REST wire shape,
// so the real REST client can be developed against the mock.
package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"bx24report/internal/bx24"
	"bx24report/internal/observability"
)

// DefaultAddr is the listen address for the serve command.
const DefaultAddr = "localhost:8089"

// Options configures a Server.
type Options struct {
	// BaseURL is advertised as the client endpoint origin. When empty it is
	// derived from each request's Host.
	BaseURL string

	// MetricsNamespace prefixes Prometheus metric names.
	MetricsNamespace string

	// Logger receives request logs. Defaults to log.Default().
	Logger *log.Logger
}

// Server exposes the SDK descriptor and REST methods of a client.
type Server struct {
	client   bx24.Client
	auth     bx24.Auth
	baseURL  string
	registry *prometheus.Registry
	metrics  *observability.Metrics
	logger   *log.Logger
}

// envelope is the gateway's reply shape.
type envelope struct {
	Result any  `json:"result"`
	Total  *int `json:"total,omitempty"`
	Next   *int `json:"next,omitempty"`
}

// New creates a Server backed by client. Calls are instrumented.
func New(client bx24.Client, opts Options) *Server {
	namespace := opts.MetricsNamespace
	if namespace == "" {
		namespace = "bx24report"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry, namespace)

	return &Server{
		client:   observability.Instrument(client, metrics),
		auth:     client.GetAuth(),
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler(s.registry).ServeHTTP(w, r)
	})
	r.Get("/api/v1/", s.handleDescriptor)
	r.Post("/rest/{method}", s.handleMethod)

	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		s.logger.Printf("devserver: %s %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleDescriptor serves the host descriptor HTTPHost loads as the SDK.
func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	auth := s.auth
	auth.ClientEndpoint = s.origin(r) + "/rest/"
	s.metrics.HTTPRequests.WithLabelValues("descriptor", "200").Inc()
	respondJSON(w, http.StatusOK, auth)
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimSuffix(chi.URLParam(r, "method"), ".json")

	if r.Header.Get("Authorization") != "Bearer "+s.auth.AccessToken {
		s.respondError(w, "rest", http.StatusUnauthorized, &bx24.Error{
			Code:        "NO_AUTH_FOUND",
			Description: "Wrong authorization data",
		})
		return
	}

	var params bx24.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, "rest", http.StatusBadRequest, &bx24.Error{
			Code:        "INVALID_REQUEST",
			Description: err.Error(),
		})
		return
	}

	res, err := bx24.Call(r.Context(), s.client, method, params)
	if err != nil {
		var apiErr *bx24.Error
		if errors.As(err, &apiErr) {
			s.respondError(w, "rest", http.StatusBadRequest, apiErr)
			return
		}
		// Client went away while waiting
		s.logger.Printf("devserver: %s: %v", method, err)
		return
	}

	env := envelope{Result: res.Data()}
	if total, ok := res.Total(); ok {
		env.Total = &total
		var page []json.RawMessage
		if json.Unmarshal(res.Data(), &page) == nil {
			if next := params.Start + len(page); next < total {
				env.Next = &next
			}
		}
	}
	if method == bx24.MethodTasksList {
		env.Result = map[string]any{"tasks": res.Data()}
	}

	s.metrics.HTTPRequests.WithLabelValues("rest", "200").Inc()
	respondJSON(w, http.StatusOK, env)
}

func (s *Server) origin(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) respondError(w http.ResponseWriter, route string, status int, e *bx24.Error) {
	s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	respondJSON(w, status, e)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
