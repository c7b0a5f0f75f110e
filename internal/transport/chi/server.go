// Package chi exposes the HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/refbase-io/refbase/internal/domain"
	"github.com/refbase-io/refbase/internal/logger"
	"github.com/refbase-io/refbase/internal/metrics"
	searchuc "github.com/refbase-io/refbase/internal/usecase/search"
)

// Searcher runs ranked retrieval.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) ([]domain.SearchResult, error)
}

// Syncer drives embedding synchronization.
type Syncer interface {
	Stats(ctx context.Context) (domain.SyncStats, error)
	EmbedPending(ctx context.Context, batchSize int) (domain.JobResult, error)
	ReindexAll(ctx context.Context) (domain.JobResult, error)
	ReembedAsync(id string)
	RemoveDocument(ctx context.Context, id string) error
}

// Documents reads and writes the catalog.
type Documents interface {
	UpsertDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires usecases into HTTP handlers.
type Server struct {
	search  Searcher
	sync    Syncer
	docs    Documents
	pingers []Pinger
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, sync Syncer, docs Documents, logger *zap.Logger, pingers ...Pinger) *Server {
	return &Server{search: search, sync: sync, docs: docs, pingers: pingers, logger: logger}
}

// Router builds the HTTP routing table with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)
	r.Use(s.wideEvent)
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)

		r.Get("/sync/stats", s.handleStats)
		r.Post("/sync/embed-pending", s.handleEmbedPending)
		r.Post("/sync/reindex", s.handleReindex)

		r.Put("/documents/{id}", s.handleUpsertDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/documents/{id}/reembed", s.handleReembed)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ucReq, err := req.toUsecase()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, 0, len(results))
	for _, res := range results {
		items = append(items, searchResultItem{
			DocumentID: res.DocumentID,
			Score:      res.Score,
			Source:     string(res.Source),
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: items})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sync.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEmbedPending(w http.ResponseWriter, r *http.Request) {
	var req embedPendingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := s.sync.EmbedPending(r.Context(), req.BatchSize)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.ReindexAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	doc := req.toDomain(id)
	if err := s.docs.UpsertDocument(r.Context(), doc); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.RemoveDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReembed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Existence check up front; the embedding itself runs detached.
	if _, err := s.docs.GetDocument(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.sync.ReembedAsync(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "id": id})
}

// handleDomainError maps sentinel errors onto HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	case errors.Is(err, domain.ErrEmbeddingProvider):
		writeError(w, http.StatusBadGateway, domain.ErrEmbeddingProvider.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// wideEvent emits a canonical log line per request and propagates X-Request-ID.
func (s *Server) wideEvent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		reqLogger := s.logger.With(zap.String("request_id", requestID))
		ctx := logger.ContextWithLogger(r.Context(), reqLogger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", r.RemoteAddr),
			zap.Int("response_bytes", ww.BytesWritten()))
	})
}

// recoverer converts panics into JSON 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
