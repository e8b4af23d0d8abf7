// Package redis implements a report sender that appends converted batches
// to a Redis stream, one entry per reporting cycle. Consumers read the
// stream with XREAD/XREADGROUP and forward updates at their own pace.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/metrelay/metrelay/pkg/wire"
)

// Config represents the configuration options for the Redis sender.
type Config struct {
	// Addr is the Redis server address.
	// Default: localhost:6379
	Addr string `json:"addr" yaml:"addr"`

	// Password authenticates against the server. Empty disables auth.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// DB selects the Redis database.
	DB int `json:"db" yaml:"db"`

	// Stream is the stream key updates are appended to.
	// Default: metrelay:updates
	Stream string `json:"stream" yaml:"stream"`

	// MaxLen caps the stream length with approximate trimming. Zero keeps
	// the stream unbounded.
	// Default: 8192
	MaxLen int64 `json:"max_len" yaml:"max_len"`
}

// DefaultConfig returns a default configuration for the Redis sender.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "localhost:6379",
		Stream: "metrelay:updates",
		MaxLen: 8192,
	}
}

// Sender appends batches to a Redis stream. It implements report.Sender.
type Sender struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New creates a Redis sender and verifies connectivity with a ping.
func New(cfg *Config) (*Sender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	stream := cfg.Stream
	if stream == "" {
		stream = "metrelay:updates"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Sender{
		client: client,
		stream: stream,
		maxLen: cfg.MaxLen,
	}, nil
}

// Send implements report.Sender. Each call appends one stream entry whose
// payload field carries the batches as JSON.
func (s *Sender) Send(ctx context.Context, batches []*wire.PerStepNamespaceMetrics) error {
	payload, err := json.Marshal(batches)
	if err != nil {
		return fmt.Errorf("failed to encode batches: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"payload": payload,
			"batches": len(batches),
			"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}

// Name implements report.Sender.
func (s *Sender) Name() string {
	return "redis"
}

// Close implements report.Sender.
func (s *Sender) Close() error {
	return s.client.Close()
}
