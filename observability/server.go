package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"matchain-gc/utils"
)

// Server serves /metrics and /healthz while a run is in progress.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	logger  *utils.Logger
	runID   string
	started time.Time
}

// NewServer builds the router; Start begins listening.
func NewServer(c *Collector, runID string, logger *utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	s := &Server{router: chi.NewRouter(), logger: logger, runID: runID, started: time.Now()}
	s.router.Use(middleware.Recoverer)
	s.router.Method(http.MethodGet, "/metrics", c.Handler())
	s.router.Get("/healthz", s.handleHealth)
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"run_id":         s.runID,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// Start listens on addr in the background. Listener errors are logged.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		s.logger.Info("[metrics] Listening on %s", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("[metrics] Server stopped: %v", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
