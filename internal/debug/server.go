// Package debug serves the agent's introspection endpoints: a liveness
// probe, the most recent converted report as JSON, and a Prometheus
// rendering of the live accumulators.
package debug

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	prombridge "github.com/metrelay/metrelay/internal/bridge/prometheus"
	"github.com/metrelay/metrelay/pkg/report"
)

// Server exposes the debug endpoints over HTTP.
type Server struct {
	addr       string
	logger     *zap.Logger
	reporter   *report.Reporter
	engine     *gin.Engine
	httpServer *http.Server

	mu      sync.Mutex
	running bool
}

// NewServer wires the debug routes for the given reporter and bridge
// collector. The collector is registered on a private Prometheus registry
// so /metrics shows only converted accumulator state.
func NewServer(addr string, reporter *report.Reporter, collector *prombridge.Collector, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promRegistry := prometheus.NewRegistry()
	if err := promRegistry.Register(collector); err != nil {
		return nil, fmt.Errorf("failed to register bridge collector: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		addr:     addr,
		logger:   logger,
		reporter: reporter,
		engine:   engine,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	engine.GET("/healthz", server.handleHealthz)
	engine.GET("/last", server.handleLastReport)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})))

	return server, nil
}

// Start starts the debug server.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("debug server is already running")
	}
	s.running = true

	go func() {
		s.logger.Info("Debug server starting", zap.String("address", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Debug server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the debug server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("debug server shutdown failed: %w", err)
	}

	s.logger.Info("Debug server stopped")
	return nil
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now().Unix(),
		"send_failures": s.reporter.Failures(),
	})
}

func (s *Server) handleLastReport(c *gin.Context) {
	batches, convertedAt := s.reporter.LastReport()
	if batches == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no_report",
			"message": "No report has been produced yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"convertedAt": convertedAt.UTC(),
		"batches":     batches,
	})
}
