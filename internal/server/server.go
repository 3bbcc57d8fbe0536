// Package server binds the query engine to HTTP: dataset listing, schema
// description, and query execution over a chi router, plus health, readiness,
// and Prometheus metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bbrzycki/datasetd/pkg/types"
)

type Server struct {
	log     *slog.Logger
	cfg     Config
	handler *Handler
	http    *http.Server
}

func New(log *slog.Logger, cfg Config) (*Server, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, err := NewHandler(log, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{log: log, cfg: cfg, handler: h}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	r.Use(s.recoverMiddleware)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", requestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(metricsMiddleware)

	h.Register(r)
	r.Method(http.MethodGet, types.MetricsPath, promhttp.Handler())

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

// Handler exposes the configured router, for httptest-driven tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("listen and serve: %w", err)
		}
	}()

	s.log.Info("server: http listening",
		"addr", s.cfg.ListenAddr,
		"datasets", s.cfg.Catalog.Len(),
	)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("server: shutdown complete")
		return nil
	case err := <-serveErrCh:
		s.log.Error("server: http server error", "error", err)
		return err
	}
}
