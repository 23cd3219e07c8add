package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hiveworks/dispatch"
	"github.com/hiveworks/dispatch/agents"
)

// Server hosts the engine plus its health and metrics endpoints.
type Server struct {
	engine *dispatch.Engine
	logger *zap.Logger
	http   *http.Server
	start  time.Time
	fatal  <-chan error
}

// NewServer loads configuration, builds the engine, and registers the
// bundled sample agents.
func NewServer(configPath, addr string) (*Server, error) {
	registry := prometheus.NewRegistry()
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	opts := []dispatch.Option{
		dispatch.WithMetricsRegistry(registry),
		dispatch.WithLogger(logger),
	}
	if configPath != "" {
		opts = append(opts, dispatch.WithConfigFile(configPath))
	}
	eng, err := dispatch.New(opts...)
	if err != nil {
		return nil, err
	}

	eng.RegisterAgent(agents.NewPlanAgent(logger))
	eng.RegisterAgent(agents.NewRiskAgent(logger))
	eng.RegisterAgent(agents.NewReportAgent(logger))
	eng.RegisterAgent(agents.NewGovernanceAgent(logger, "objective"))

	s := &Server{
		engine: eng,
		logger: logger,
		start:  time.Now(),
		fatal:  eng.Broker().Fatal(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start brings the engine online and begins serving HTTP.
func (s *Server) Start() error {
	s.engine.Start()

	errc := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		s.engine.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		return nil
	}
}

// WaitForShutdown blocks until a termination signal or a broker fault, then
// drains everything.
func (s *Server) WaitForShutdown() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-s.fatal:
		s.logger.Error("broker fault, shutting down", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	s.engine.Stop()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"version":        Version,
		"uptime_seconds": int(time.Since(s.start).Seconds()),
	})
}
