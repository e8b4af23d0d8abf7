package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/metrelay/metrelay/pkg/wire"
)

func testBatches() []*wire.PerStepNamespaceMetrics {
	return []*wire.PerStepNamespaceMetrics{
		{
			OriginalStep:     "step-a",
			MetricsNamespace: "bigquery",
			MetricValues: []wire.MetricValue{
				{Metric: "appended_rows", ValueInt64: wire.Int64(5)},
			},
		},
	}
}

func TestSender_Send(t *testing.T) {
	var got updateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token" {
			t.Errorf("Expected authorization header, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := New(&Config{
		Endpoint: server.URL,
		Headers:  map[string]string{"Authorization": "Bearer token"},
	})
	if err != nil {
		t.Fatalf("Failed to create sender: %v", err)
	}
	defer sender.Close()

	if err := sender.Send(context.Background(), testBatches()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(got.PerStepNamespaceMetrics) != 1 {
		t.Fatalf("Expected 1 batch in payload, got %d", len(got.PerStepNamespaceMetrics))
	}
	batch := got.PerStepNamespaceMetrics[0]
	if batch.MetricsNamespace != "bigquery" {
		t.Errorf("Expected namespace 'bigquery', got %q", batch.MetricsNamespace)
	}
	if got.SentAt.IsZero() {
		t.Error("Expected sentAt timestamp set")
	}
}

func TestSender_Send_CollectorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender, err := New(&Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("Failed to create sender: %v", err)
	}
	defer sender.Close()

	if err := sender.Send(context.Background(), testBatches()); err == nil {
		t.Error("Expected error for 503 response")
	}
}

func TestSender_Send_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := New(&Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("Failed to create sender: %v", err)
	}
	defer sender.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sender.Send(ctx, testBatches()); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Error("Expected error for missing endpoint")
	}
}

func TestNew_H2CTransport(t *testing.T) {
	sender, err := New(&Config{Endpoint: "http://collector:8080/v1/metrics", EnableH2C: true})
	if err != nil {
		t.Fatalf("Failed to create h2c sender: %v", err)
	}
	defer sender.Close()

	if sender.client.Transport == nil {
		t.Error("Expected h2c transport configured")
	}
}
