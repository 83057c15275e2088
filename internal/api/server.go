// Package api exposes the HTTP interface for the acquisition service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/metrics"
	"github.com/scribehq/docharvest/internal/pipeline"
)

// Acquirer runs the acquisition pipeline for a batch of URLs.
type Acquirer interface {
	AcquireBatch(ctx context.Context, projectID string, urls []string) []document.ScrapeResult
}

// Processor re-extracts text from a stored document artifact.
type Processor interface {
	Process(ctx context.Context, documentID string) (pipeline.ProcessResult, error)
}

// Server wires HTTP handlers to the pipeline. Acquirer may be nil when the
// browser session failed to start; scrape requests then fail with 500 while
// the rest of the API keeps working.
type Server struct {
	router    chi.Router
	acquirer  Acquirer
	processor Processor
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(acquirer Acquirer, processor Processor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		acquirer:  acquirer,
		processor: processor,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.scrape)
		r.Post("/documents/process", s.processDocument)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.acquirer == nil {
		writeError(w, http.StatusServiceUnavailable, "browser session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type scrapeRequest struct {
	ProjectID string   `json:"project_id"`
	URLs      []string `json:"urls"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		writeError(w, http.StatusBadRequest, "project_id required")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one URL required")
		return
	}
	if s.acquirer == nil {
		writeError(w, http.StatusInternalServerError, "browser session unavailable")
		return
	}

	results := s.acquirer.AcquireBatch(r.Context(), req.ProjectID, req.URLs)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type processRequest struct {
	DocumentID string `json:"document_id"`
}

func (s *Server) processDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeError(w, http.StatusBadRequest, "document_id required")
		return
	}
	if s.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "document catalog unavailable")
		return
	}

	result, err := s.processor.Process(r.Context(), req.DocumentID)
	if err != nil {
		writeError(w, processStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func processStatus(err error) int {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoArtifact):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrArtifactFetch):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrNoExtractableText):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
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

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
			logger.Info("request completed",
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// requestIDFrom returns the request id placed in ctx by requestIDMiddleware,
// or "" when the middleware did not run.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
