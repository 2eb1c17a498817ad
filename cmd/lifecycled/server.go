package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inspiranet/internal/constants"
	"inspiranet/internal/errors"
	"inspiranet/internal/lifecycle"
	"inspiranet/internal/models"
	"inspiranet/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// SweepRunner triggers a single sweep on demand.
type SweepRunner interface {
	RunAutoDelete(ctx context.Context) (*lifecycle.SweepResult, error)
	RunCleanup(ctx context.Context) (*lifecycle.CleanupResult, error)
}

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	cfg      models.ServerConfig
	db       Pinger
	sweeps   SweepRunner
	gatherer prometheus.Gatherer
	server   *http.Server
}

func NewServer(cfg models.ServerConfig, db Pinger, sweeps SweepRunner, gatherer prometheus.Gatherer, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		cfg:      cfg,
		db:       db,
		sweeps:   sweeps,
		gatherer: gatherer,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/sweeps/{name}", s.handleSweep()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := s.cfg.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(constants.DefaultServerReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(constants.DefaultServerWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(constants.DefaultServerIdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting ops server on port %d", port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			s.logger.WithError(err).Warn("Health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleSweep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		var (
			res any
			err error
		)
		switch name {
		case service.SweepAutoDelete:
			res, err = s.sweeps.RunAutoDelete(r.Context())
		case service.SweepCleanup:
			res, err = s.sweeps.RunCleanup(r.Context())
		default:
			s.writeError(w, errors.NewValidationError("name", fmt.Sprintf("unknown sweep %q", name)))
			return
		}
		if err != nil {
			s.logger.WithError(err).WithField(service.LogFieldSweep, name).Error("Manual sweep failed")
			s.writeError(w, errors.NewDatabaseError("sweep", err))
			return
		}

		s.writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err *errors.AppError) {
	s.writeJSON(w, errors.HTTPStatusCode(err), map[string]string{
		"code":  string(err.Code),
		"error": errors.GetUserMessage(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
