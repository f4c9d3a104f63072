// Package web serves the pipeline's current snapshot as a read-only JSON
// API. The snapshot pointer is guarded by a RWMutex and swapped atomically
// after a refresh; handlers never see a half-built result.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/etl"
)

// Server owns the HTTP listener, the pipeline, and the snapshot it serves.
type Server struct {
	cfg  *config.Config
	log  *logrus.Logger
	pipe *etl.Pipeline
	opts etl.RunOptions

	httpServer *http.Server
	router     *mux.Router

	mu   sync.RWMutex
	snap *etl.Snapshot
}

// NewServer creates a server over the given pipeline. The run options are
// reused on every refresh so the served dataset keeps the same filters.
func NewServer(cfg *config.Config, log *logrus.Logger, pipe *etl.Pipeline, opts etl.RunOptions) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		cfg:  cfg,
		log:  log,
		pipe: pipe,
		opts: opts,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/kpis", s.handleKPIs).Methods("GET")
	api.HandleFunc("/cancellations", s.handleCancellations).Methods("GET")
	api.HandleFunc("/driving", s.handleDriving).Methods("GET")
	api.HandleFunc("/review/orphans", s.handleOrphans).Methods("GET")
	api.HandleFunc("/review/mismatches", s.handleMismatches).Methods("GET")
	api.HandleFunc("/jobs", s.handleJobs).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/export", s.handleExport).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.Use(CORS())
	s.router.Use(RequestLogging(s.log))
}

// Snapshot returns the currently served snapshot, nil before the first run.
func (s *Server) Snapshot() *etl.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetSnapshot swaps the served snapshot.
func (s *Server) SetSnapshot(snap *etl.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.Infof("serving on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("server error: %v", err)
		}
	}()

	<-stop
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
