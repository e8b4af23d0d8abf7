// Package config defines the interface between the agent and its
// configuration backends.
package config

import "context"

// Source defines the interface for configuration sources.
// It abstracts the common behavior of configuration backends (local file,
// etcd, etc.) so the agent can load and watch configuration through a
// unified interface.
type Source interface {
	// Get retrieves the complete configuration data from the source.
	// The returned bytes are the raw configuration document, typically
	// YAML, whose interpretation is left to the caller.
	Get() ([]byte, error)

	// Watch monitors the source and returns a channel that delivers the
	// complete configuration data whenever it changes. Implementations
	// send the current configuration immediately upon successful setup,
	// deliver full documents rather than diffs, and close the channel
	// when the context is cancelled.
	Watch(ctx context.Context) (<-chan []byte, error)

	// Close closes the source and cleans up any resources
	Close() error
}
