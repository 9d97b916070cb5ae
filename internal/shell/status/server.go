// Package status serves a small read-only HTTP API describing a running
// deployment batch: liveness, per-platform progress and recorded results.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
)

// ProgressSource provides progress snapshots. *orchestrator.Orchestrator
// satisfies it.
type ProgressSource interface {
	Progress() orchestrator.Snapshot
}

// RecordLister lists the latest record of every unit. store.Store satisfies it.
type RecordLister interface {
	List(ctx context.Context) ([]domain.DeploymentRecord, error)
}

// Config holds status server configuration.
type Config struct {
	Address      string // Listen address, e.g. "127.0.0.1:8089"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns the default configuration. The server listens on
// loopback only.
func DefaultConfig() Config {
	return Config{
		Address:      "127.0.0.1:8089",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server exposes run progress over HTTP.
type Server struct {
	config   Config
	progress ProgressSource
	records  RecordLister
	logger   *slog.Logger
}

// NewServer creates a status server. records may be nil, in which case
// /records answers 404.
func NewServer(cfg Config, progress ProgressSource, records RecordLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		progress: progress,
		records:  records,
		logger:   logger.With("component", "status"),
	}
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Running bool   `json:"running"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Routes returns the router with all routes configured.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(jsonContentType)

	r.Get("/health", s.handleHealth)
	r.Get("/progress", s.handleProgress)
	r.Get("/progress/{platform}", s.handlePlatformProgress)
	r.Get("/records", s.handleRecords)

	return r
}

// Start starts the server (non-blocking). Stop it with Shutdown on the
// returned server.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	go func() {
		s.logger.Info("starting status server", "address", s.config.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()

	return srv
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.progress.Progress()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		RunID:   snap.RunID,
		Running: snap.Running,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.progress.Progress())
}

func (s *Server) handlePlatformProgress(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParsePlatformKind(chi.URLParam(r, "platform"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "unknown_platform")
		return
	}
	for _, p := range s.progress.Progress().Platforms {
		if p.Platform == kind {
			s.writeJSON(w, http.StatusOK, p)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "platform not part of this run", "not_found")
}

// handleRecords lists the latest record per unit. Optional query parameters
// platform and status filter the list.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		s.writeError(w, http.StatusNotFound, "no result store attached", "not_found")
		return
	}

	var platform domain.PlatformKind
	if v := r.URL.Query().Get("platform"); v != "" {
		kind, err := domain.ParsePlatformKind(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error(), "unknown_platform")
			return
		}
		platform = kind
	}
	status := domain.RecordStatus(r.URL.Query().Get("status"))
	if status != "" && status != domain.RecordSuccess && status != domain.RecordFailure {
		s.writeError(w, http.StatusBadRequest, "status must be success or failure", "invalid_status")
		return
	}

	records, err := s.records.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list records", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list records", "store_error")
		return
	}

	out := make([]domain.DeploymentRecord, 0, len(records))
	for _, rec := range records {
		if platform != "" && rec.Platform != platform {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Helpers
// =============================================================================

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
