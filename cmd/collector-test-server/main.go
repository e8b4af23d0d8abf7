package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/metrelay/metrelay/pkg/wire"
)

var (
	addr      = flag.String("addr", ":9090", "Listen address")
	enableH2C = flag.Bool("h2c", false, "Accept HTTP/2 over cleartext connections")
	version   = flag.Bool("version", false, "Show version information")
)

const (
	// Version information
	Version   = "v1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// updateRequest mirrors the JSON document the HTTP sender posts.
type updateRequest struct {
	SentAt                  time.Time                       `json:"sentAt"`
	PerStepNamespaceMetrics []*wire.PerStepNamespaceMetrics `json:"perStepNamespaceMetrics"`
}

// CollectorServer receives posted metric updates and logs a summary of
// each one. It stands in for a real collector when testing agents.
type CollectorServer struct {
	httpServer *http.Server
	mux        *http.ServeMux

	received int64
}

// NewCollectorServer creates a collector test server listening on addr.
func NewCollectorServer(addr string, enableH2C bool) *CollectorServer {
	mux := http.NewServeMux()

	var handler http.Handler = mux
	if enableH2C {
		handler = h2c.NewHandler(mux, &http2.Server{})
		log.Println("HTTP/2 cleartext support enabled")
	}

	server := &CollectorServer{
		mux: mux,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.setupRoutes()
	return server
}

// setupRoutes sets up HTTP routes
func (s *CollectorServer) setupRoutes() {
	s.mux.HandleFunc("/v1/metrics:update", s.handleUpdate)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// handleUpdate handles posted metric updates
func (s *CollectorServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update updateRequest
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("Rejected malformed update from %s: %v", r.RemoteAddr, err)
		http.Error(w, "Malformed update", http.StatusBadRequest)
		return
	}

	total := atomic.AddInt64(&s.received, 1)
	s.logUpdate(r, total, &update)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"received":%d}`, len(update.PerStepNamespaceMetrics))
}

// logUpdate logs a summary of one posted update
func (s *CollectorServer) logUpdate(r *http.Request, total int64, update *updateRequest) {
	protocol := "HTTP/1.1"
	if r.ProtoMajor == 2 {
		protocol = "HTTP/2"
	}

	log.Printf("Update #%d via %s from %s: %d batches, sent at %s",
		total, protocol, r.RemoteAddr,
		len(update.PerStepNamespaceMetrics),
		update.SentAt.Format(time.RFC3339))

	for _, batch := range update.PerStepNamespaceMetrics {
		counters, histograms := 0, 0
		for _, value := range batch.MetricValues {
			if value.ValueInt64 != nil {
				counters++
			}
			if value.ValueHistogram != nil {
				histograms++
			}
		}
		log.Printf("  step=%s namespace=%s counters=%d histograms=%d",
			batch.OriginalStep, batch.MetricsNamespace, counters, histograms)
	}
}

// Received returns the number of updates accepted so far.
func (s *CollectorServer) Received() int64 {
	return atomic.LoadInt64(&s.received)
}

// handleHealth handles health check requests
func (s *CollectorServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%d,"updates_received":%d}`,
		time.Now().Unix(), atomic.LoadInt64(&s.received))
}

// Start starts the HTTP server
func (s *CollectorServer) Start() error {
	log.Printf("Starting collector test server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *CollectorServer) Shutdown(ctx context.Context) error {
	log.Println("Shutting down collector test server...")
	return s.httpServer.Shutdown(ctx)
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Collector Test Server %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	server := NewCollectorServer(*addr, *enableH2C)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Received interrupt signal, initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		os.Exit(1)
	}

	log.Println("Server shutdown completed successfully")
}
