package etcd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/metrelay/metrelay/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdSource implements the config.Source interface for etcd-based configuration.
// It loads configuration from a single etcd key and watches it for changes.
type EtcdSource struct {
	client   *clientv3.Client
	key      string
	mu       sync.RWMutex
	watchers map[string]*watcher
	closed   bool
}

// watcher represents an etcd watcher instance
type watcher struct {
	cancel context.CancelFunc
	ch     chan []byte
}

// Config represents etcd connection configuration
type Config struct {
	Endpoints []string      `yaml:"endpoints"`
	Timeout   time.Duration `yaml:"timeout"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
}

// NewEtcdSource creates a new etcd-based configuration source watching the
// given key. It connects to the cluster eagerly and fails if no endpoint
// is reachable.
func NewEtcdSource(cfg *Config, key string) (config.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("etcd config cannot be nil")
	}

	if key == "" {
		return nil, fmt.Errorf("etcd key cannot be empty")
	}

	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	clientConfig := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.Timeout,
	}

	if clientConfig.DialTimeout == 0 {
		clientConfig.DialTimeout = 5 * time.Second
	}

	if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), clientConfig.DialTimeout)
	defer cancel()

	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdSource{
		client:   client,
		key:      key,
		watchers: make(map[string]*watcher),
	}, nil
}

// Get retrieves the current value of the configured key from etcd.
func (es *EtcdSource) Get() ([]byte, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if es.closed {
		return nil, fmt.Errorf("etcd source is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := es.client.Get(ctx, es.key)
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s from etcd: %w", es.key, err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("key %s not found in etcd", es.key)
	}

	return resp.Kvs[0].Value, nil
}

// Watch monitors the etcd key and returns a channel that delivers the
// latest value whenever it changes.
//
// The current value is sent immediately upon setup. The watch uses etcd's
// native Watch API and re-establishes itself when the watch channel closes
// or reports an error. The returned channel is closed when the context is
// cancelled.
func (es *EtcdSource) Watch(ctx context.Context) (<-chan []byte, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.closed {
		return nil, fmt.Errorf("etcd source is closed")
	}

	watcherCtx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 1)

	w := &watcher{
		cancel: cancel,
		ch:     ch,
	}

	watcherKey := fmt.Sprintf("watcher_%d", time.Now().UnixNano())
	es.watchers[watcherKey] = w

	go func() {
		defer func() {
			es.mu.Lock()
			delete(es.watchers, watcherKey)
			es.mu.Unlock()
			close(ch)
		}()

		// Send current configuration immediately
		if data, err := es.getCurrentValue(); err == nil {
			select {
			case ch <- data:
			case <-watcherCtx.Done():
				return
			}
		}

		watchCh := es.client.Watch(watcherCtx, es.key)

		for {
			select {
			case <-watcherCtx.Done():
				return
			case watchResp, ok := <-watchCh:
				if !ok {
					watchCh = es.client.Watch(watcherCtx, es.key)
					continue
				}

				if watchResp.Err() != nil {
					time.Sleep(time.Second)
					watchCh = es.client.Watch(watcherCtx, es.key)
					continue
				}

				for _, event := range watchResp.Events {
					if string(event.Kv.Key) == es.key {
						select {
						case ch <- event.Kv.Value:
						case <-watcherCtx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return ch, nil
}

// getCurrentValue retrieves the current value from etcd
func (es *EtcdSource) getCurrentValue() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := es.client.Get(ctx, es.key)
	if err != nil {
		return nil, err
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("key not found")
	}

	return resp.Kvs[0].Value, nil
}

// Close closes the etcd source and cleans up all resources
func (es *EtcdSource) Close() error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.closed {
		return nil
	}

	es.closed = true

	for _, w := range es.watchers {
		w.cancel()
	}
	es.watchers = make(map[string]*watcher)

	if es.client != nil {
		return es.client.Close()
	}

	return nil
}
