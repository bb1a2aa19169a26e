// Package server exposes a schema.Session over a read-only HTTP API. It is
// meant for operational inspection: browsing discovered tables, dumping
// constraint metadata, and forcing cache refreshes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/schemakit/schemakit/schema"
)

// Server serves schema metadata over HTTP. A Session is not safe for
// concurrent use, so the server serializes all access to it.
type Server struct {
	mu      sync.Mutex
	session *schema.Session
	log     *zap.Logger
	router  chi.Router
}

// New creates a metadata server over session. A nil logger disables request
// logging.
func New(session *schema.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		session: session,
		log:     logger,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler for the metadata API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/schemas", s.handleSchemas)
	r.Get("/tables", s.handleTables)
	r.Get("/views", s.handleViews)
	r.Get("/tables/{table}", s.handleTableSchema)
	r.Get("/tables/{table}/{kind}", s.handleTableKind)
	r.Post("/refresh", s.handleRefresh)
	r.Delete("/tables/{table}", s.handleRefreshTable)

	return r
}

// requestLogger logs each request at debug level
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names, err := s.session.SchemaNames(r.Context(), refreshParam(r))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"schemas": names})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names, err := s.session.TableNames(r.Context(), r.URL.Query().Get("schema"), refreshParam(r))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tables": names})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names, err := s.session.ViewNames(r.Context(), r.URL.Query().Get("schema"), refreshParam(r))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"views": names})
}

func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.mu.Lock()
	ts, err := s.session.TableSchema(r.Context(), table, refreshParam(r))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ts == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "table not found: " + table})
		return
	}
	s.writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleTableKind(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	kind, err := schema.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	value, err := s.session.TableMetadata(r.Context(), table, kind, refreshParam(r))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{kind.String(): value})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.session.Refresh(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.mu.Lock()
	err := s.session.RefreshTable(r.Context(), table)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func refreshParam(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "1"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, schema.ErrNotSupported) {
		status = http.StatusNotImplemented
	}
	s.writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}
