// Package server exposes the synced store over a REST API and streams
// collection-change events to clients via SSE.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasktide/tasktide/config"
	"github.com/tasktide/tasktide/syncstore"
)

// Server is the tasktide HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	store   *syncstore.Store
	hub     *hub
	version string

	unsubscribe func()
	startTime   time.Time
}

// New creates a Server around an already loaded store.
func New(cfg config.Config, store *syncstore.Store, ver string, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		store:     store,
		hub:       newHub(logger),
		version:   ver,
		startTime: time.Now(),
	}
}

// Handler returns the route tree, registering it on first use. Exposed for
// tests; Start uses it internally.
func (s *Server) Handler() http.Handler {
	if s.unsubscribe == nil {
		s.registerRoutes()
		s.unsubscribe = s.store.Subscribe(func(ev syncstore.Event) {
			s.hub.broadcast("collection", map[string]string{"collection": ev.Collection})
		})
	}
	return s.mux
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	handler := s.Handler()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":9280"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /events", s.hub.serveSSE)

	s.mux.HandleFunc("GET /api/tasks", s.listTasks)
	s.mux.HandleFunc("POST /api/tasks", s.createTask)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.getTask)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.updateTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.deleteTask)

	s.mux.HandleFunc("GET /api/projects", s.listProjects)
	s.mux.HandleFunc("POST /api/projects", s.createProject)
	s.mux.HandleFunc("PATCH /api/projects/{id}", s.updateProject)
	s.mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProject)

	s.mux.HandleFunc("GET /api/timeblocks", s.listTimeBlocks)
	s.mux.HandleFunc("POST /api/timeblocks", s.createTimeBlock)
	s.mux.HandleFunc("PATCH /api/timeblocks/{id}", s.updateTimeBlock)
	s.mux.HandleFunc("DELETE /api/timeblocks/{id}", s.deleteTimeBlock)

	s.mux.HandleFunc("GET /api/trackings", s.listTrackings)
	s.mux.HandleFunc("GET /api/trackings/active", s.activeTracking)
	s.mux.HandleFunc("POST /api/trackings", s.addTracking)
	s.mux.HandleFunc("POST /api/trackings/start", s.startTracking)
	s.mux.HandleFunc("POST /api/trackings/stop", s.stopTracking)
	s.mux.HandleFunc("PATCH /api/trackings/{id}", s.updateTracking)
	s.mux.HandleFunc("DELETE /api/trackings/{id}", s.deleteTracking)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"online":  s.store.Online(),
		"pending": s.store.PendingMutations(),
	})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
