// Package server exposes ingestion over HTTP: synchronous single-URL
// ingestion, fire-and-forget workflow triggers and read-only lookups.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/job-ingest/internal/db"
	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/server/middleware"
	"github.com/jonathan/job-ingest/internal/server/ratelimit"
	"github.com/jonathan/job-ingest/internal/workflow"
)

// Ingester runs a synchronous ingestion.
type Ingester interface {
	Run(ctx context.Context, req ingestion.Request, profileID string) pipeline.Result[*ingestion.Output]
}

// Submitter enqueues a workflow message. *workflow.Workflow implements it.
type Submitter[I any] interface {
	Submit(in I, profileID string) (workflow.Accepted, error)
}

// Lookups serves the read-only endpoints.
type Lookups interface {
	GetJobBySourceURL(ctx context.Context, sourceURL string) (*db.Job, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*db.Company, error)
}

// Deps are the server's collaborators. Tokens nil disables authentication
// and requests run as the system profile. Limiter nil disables rate
// limiting.
type Deps struct {
	Ingest      Ingester
	Discovery   Submitter[workflow.DiscoveryRequest]
	StatusCheck Submitter[ingestion.StatusCheckRequest]
	Lookups     Lookups
	Tokens      middleware.TokenValidator
	Limiter     *ratelimit.Limiter
}

// Config holds server configuration.
type Config struct {
	Port int
	// ShutdownTimeout bounds graceful shutdown; zero means 30s.
	ShutdownTimeout time.Duration
}

// Server is the HTTP trigger surface.
type Server struct {
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	shutdown   time.Duration
}

// New creates a server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		shutdown: cfg.ShutdownTimeout,
	}
	if s.shutdown <= 0 {
		s.shutdown = 30 * time.Second
	}

	auth := func(h http.HandlerFunc) http.Handler { return h }
	if deps.Tokens != nil {
		mw := middleware.AuthMiddleware(deps.Tokens)
		auth = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /ingest", auth(s.handleIngest))
	mux.Handle("POST /workflows/discovery", auth(s.handleDiscovery))
	mux.Handle("POST /workflows/status-check", auth(s.handleStatusCheck))
	mux.HandleFunc("GET /jobs/by-url", s.handleJobByURL)
	mux.HandleFunc("GET /companies/{id}", s.handleGetCompany)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout: 30 * time.Second,
		// Synchronous ingestion waits on page fetches and the extraction
		// service.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging logs each request with its status and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(), "remote", r.RemoteAddr)
	})
}

// withRateLimit rejects clients that exceed their endpoint budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.deps.Limiter.Allow(clientID(r), r.Method, r.URL.Path)
		if d.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		}
		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds() + 0.999)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			slog.Warn("rate limit exceeded", "client", clientID(r), "path", r.URL.Path, "retry_after_s", retry)
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// profileID returns the authenticated profile, or "" when authentication
// is disabled.
func (s *Server) profileID(r *http.Request) string {
	id, err := middleware.GetProfileID(r)
	if err != nil {
		return ""
	}
	return id
}
