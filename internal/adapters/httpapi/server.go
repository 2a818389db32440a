package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUploadBytes caps request bodies when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

// Analyzer is the pipeline the server exposes
type Analyzer interface {
	Analyze(ctx context.Context, in domain.RawInput) (domain.ClassifiedResult, error)
}

// Server exposes the analysis pipeline over HTTP for a presentation layer
type Server struct {
	analyzer       Analyzer
	maxUploadBytes int64
	requestTimeout time.Duration
	gatherer       prometheus.Gatherer
}

// NewServer creates the HTTP server. requestTimeout bounds a whole request,
// including any delegate call; a nil gatherer disables /metrics.
func NewServer(analyzer Analyzer, maxUploadBytes int64, requestTimeout time.Duration, gatherer prometheus.Gatherer) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if requestTimeout <= 0 {
		requestTimeout = time.Minute
	}
	return &Server{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		requestTimeout: requestTimeout,
		gatherer:       gatherer,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.Analyze)
	})

	return r
}

// Health reports liveness
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
