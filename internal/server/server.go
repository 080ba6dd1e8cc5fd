// Package server exposes the comps search engine over HTTP next to the
// health, readiness and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/comps"
	"comps-workers/internal/comps/archive"
	"comps-workers/internal/comps/history"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const searchTaskType = "search-sold-listings"

// Searcher is satisfied by *comps.Service.
type Searcher interface {
	Search(ctx context.Context, req comps.SearchRequest) (*comps.SearchResult, error)
}

// HistoryReader is satisfied by *history.Repository.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// ArchiveSearcher is satisfied by *archive.Indexer.
type ArchiveSearcher interface {
	Search(ctx context.Context, text string, size int) ([]archive.Document, error)
}

// InputValidator is satisfied by *validation.Validator.
type InputValidator interface {
	Validate(taskType string, input interface{}) error
}

// Checker is a dependency probed by /ready.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// Deps wires the server. Only Search is required.
type Deps struct {
	Search    Searcher
	History   HistoryReader
	Archive   ArchiveSearcher
	Validator InputValidator
	Checkers  []Checker
	Logger    logger.Logger
}

type Server struct {
	deps         Deps
	logger       logger.Logger
	readyTimeout time.Duration
	httpServer   *http.Server
}

// New creates the HTTP server listening on addr.
func New(addr string, deps Deps) *Server {
	s := &Server{
		deps:         deps,
		logger:       deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
		readyTimeout: 2 * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/comps/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/comps/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/comps/archive", s.handleArchive)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeJSON answers 500 when body cannot be encoded.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: apperrors.NewInternalError(err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
