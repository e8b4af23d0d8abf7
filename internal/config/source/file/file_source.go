package file

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/metrelay/metrelay/pkg/config"
)

// FileSource implements the config.Source interface for file-based configuration.
// It loads configuration from a local file and polls for modifications.
type FileSource struct {
	filePath     string
	pollInterval time.Duration
	mu           sync.RWMutex
	lastModTime  time.Time
	watchers     map[string]*watcher
}

// watcher represents a file watcher instance
type watcher struct {
	cancel context.CancelFunc
	ch     chan []byte
}

// NewFileSource creates a new file-based configuration source.
// The file must exist and be readable at construction time. A non-positive
// pollInterval falls back to one second.
func NewFileSource(filePath string, pollInterval time.Duration) (config.Source, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to access file %s: %w", filePath, err)
	}

	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &FileSource{
		filePath:     filePath,
		pollInterval: pollInterval,
		lastModTime:  stat.ModTime(),
		watchers:     make(map[string]*watcher),
	}, nil
}

// Get reads the entire file content and returns it as bytes.
func (fs *FileSource) Get() ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", fs.filePath, err)
	}

	return data, nil
}

// Watch monitors the configuration file for changes and returns a channel
// that delivers the complete file content whenever it changes.
//
// The current content is sent immediately upon setup. Afterwards the file
// modification time is polled at the configured interval, and the channel
// is closed when the context is cancelled.
func (fs *FileSource) Watch(ctx context.Context) (<-chan []byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	watcherCtx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 1)

	w := &watcher{
		cancel: cancel,
		ch:     ch,
	}

	watcherKey := fmt.Sprintf("watcher_%d", time.Now().UnixNano())
	fs.watchers[watcherKey] = w

	go func() {
		defer func() {
			fs.mu.Lock()
			delete(fs.watchers, watcherKey)
			fs.mu.Unlock()
			close(ch)
		}()

		// Send current config immediately
		if data, err := os.ReadFile(fs.filePath); err == nil {
			select {
			case ch <- data:
			case <-watcherCtx.Done():
				return
			}
		}

		ticker := time.NewTicker(fs.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-watcherCtx.Done():
				return
			case <-ticker.C:
				fs.notifyIfChanged(watcherCtx, ch)
			}
		}
	}()

	return ch, nil
}

// notifyIfChanged checks the file modification time and sends the new
// content to the channel if the file has changed since the last check.
func (fs *FileSource) notifyIfChanged(ctx context.Context, ch chan []byte) {
	stat, err := os.Stat(fs.filePath)
	if err != nil {
		// File might have been deleted or become inaccessible
		return
	}

	fs.mu.Lock()
	lastModTime := fs.lastModTime
	fs.mu.Unlock()

	if !stat.ModTime().After(lastModTime) {
		return
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return
	}

	fs.mu.Lock()
	fs.lastModTime = stat.ModTime()
	fs.mu.Unlock()

	select {
	case ch <- data:
	case <-ctx.Done():
	}
}

// Close stops all watchers and cleans up resources
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, w := range fs.watchers {
		w.cancel()
	}
	fs.watchers = make(map[string]*watcher)

	return nil
}
