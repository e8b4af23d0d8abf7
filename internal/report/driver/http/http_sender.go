// Package http implements a report sender that POSTs converted batches to
// a collector endpoint as one JSON document per reporting cycle.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/metrelay/metrelay/pkg/wire"
)

// Config represents the configuration options for the HTTP sender.
type Config struct {
	// Endpoint is the collector URL that receives POSTed updates.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Timeout bounds each delivery attempt.
	// Default: 10s
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Headers are set on every request, e.g. for authorization.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// EnableH2C speaks HTTP/2 over cleartext connections to collectors
	// that are configured the same way.
	EnableH2C bool `json:"enable_h2c" yaml:"enable_h2c"`
}

// DefaultConfig returns a default configuration for the HTTP sender.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

// updateRequest is the JSON document POSTed to the collector.
type updateRequest struct {
	SentAt                  time.Time                       `json:"sentAt"`
	PerStepNamespaceMetrics []*wire.PerStepNamespaceMetrics `json:"perStepNamespaceMetrics"`
}

// Sender ships batches over HTTP. It implements report.Sender.
type Sender struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// New creates an HTTP sender from the given configuration.
func New(cfg *Config) (*Sender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http sender: endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if cfg.EnableH2C {
		client.Transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}

	return &Sender{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		client:   client,
	}, nil
}

// Send implements report.Sender. A non-2xx collector response is an error;
// no retry is attempted.
func (s *Sender) Send(ctx context.Context, batches []*wire.PerStepNamespaceMetrics) error {
	payload := updateRequest{
		SentAt:                  time.Now().UTC(),
		PerStepNamespaceMetrics: batches,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post update: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %s", resp.Status)
	}
	return nil
}

// Name implements report.Sender.
func (s *Sender) Name() string {
	return "http"
}

// Close implements report.Sender.
func (s *Sender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
