package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/metrelay/metrelay/pkg/wire"
)

// setupTestSender connects to a local Redis instance or skips the test.
func setupTestSender(t *testing.T) (*Sender, string) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Stream = fmt.Sprintf("metrelay:test:%d", time.Now().UnixNano())

	sender, err := New(cfg)
	if err != nil {
		t.Skipf("Redis is not available: %v", err)
	}
	t.Cleanup(func() {
		_ = sender.client.Del(context.Background(), cfg.Stream).Err()
		_ = sender.Close()
	})
	return sender, cfg.Stream
}

func TestSender_Send(t *testing.T) {
	sender, stream := setupTestSender(t)

	batches := []*wire.PerStepNamespaceMetrics{
		{
			OriginalStep:     "step-a",
			MetricsNamespace: "bigquery",
			MetricValues: []wire.MetricValue{
				{Metric: "appended_rows", ValueInt64: wire.Int64(12)},
			},
		},
	}

	if err := sender.Send(context.Background(), batches); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	entries, err := sender.client.XRange(context.Background(), stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("Failed to read stream: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 stream entry, got %d", len(entries))
	}

	payload, ok := entries[0].Values["payload"].(string)
	if !ok {
		t.Fatalf("Expected payload field, got %v", entries[0].Values)
	}
	var decoded []*wire.PerStepNamespaceMetrics
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if len(decoded) != 1 || decoded[0].MetricsNamespace != "bigquery" {
		t.Errorf("Unexpected decoded batches: %+v", decoded)
	}
	if got := entries[0].Values["batches"]; got != "1" {
		t.Errorf("Expected batches field '1', got %v", got)
	}
}

func TestSender_Send_MultipleCycles(t *testing.T) {
	sender, stream := setupTestSender(t)

	for i := 0; i < 3; i++ {
		batches := []*wire.PerStepNamespaceMetrics{
			{
				OriginalStep:     "step-a",
				MetricsNamespace: "bigquery",
				MetricValues: []wire.MetricValue{
					{Metric: "appended_rows", ValueInt64: wire.Int64(int64(i + 1))},
				},
			},
		}
		if err := sender.Send(context.Background(), batches); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	count, err := sender.client.XLen(context.Background(), stream).Result()
	if err != nil {
		t.Fatalf("Failed to read stream length: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 stream entries, got %d", count)
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	cfg := &Config{Addr: "localhost:1", Stream: "metrelay:test"}

	if _, err := New(cfg); err == nil {
		t.Error("Expected error for unreachable server")
	}
}
