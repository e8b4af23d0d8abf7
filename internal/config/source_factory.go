package config

import (
	"fmt"
	"time"

	"github.com/metrelay/metrelay/internal/config/source/etcd"
	"github.com/metrelay/metrelay/internal/config/source/file"
	pkgConfig "github.com/metrelay/metrelay/pkg/config"
)

// CreateConfigSource creates a configuration source based on the provided configuration.
// It acts as a factory function that returns the appropriate config.Source implementation
// based on the driver specified in the configuration.
func CreateConfigSource(cfg *Config) (pkgConfig.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	sourceConfig := cfg.ConfigSource

	switch sourceConfig.Driver {
	case "file":
		return createFileSource(sourceConfig)
	case "etcd":
		return createEtcdSource(sourceConfig)
	default:
		return nil, fmt.Errorf("unsupported configuration source driver: %s", sourceConfig.Driver)
	}
}

// createFileSource creates a file-based configuration source
func createFileSource(sourceConfig ConfigSourceConfig) (pkgConfig.Source, error) {
	filePath := sourceConfig.File.Path
	if filePath == "" {
		return nil, fmt.Errorf("file path is required for file source driver")
	}

	pollInterval := sourceConfig.File.PollInterval
	if pollInterval == 0 {
		pollInterval = 5 * time.Second
	}

	source, err := file.NewFileSource(filePath, pollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create file source: %w", err)
	}

	return source, nil
}

// createEtcdSource creates an etcd-based configuration source
func createEtcdSource(sourceConfig ConfigSourceConfig) (pkgConfig.Source, error) {
	etcdConfig := sourceConfig.Etcd

	if len(etcdConfig.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are required for etcd source driver")
	}

	if etcdConfig.Key == "" {
		return nil, fmt.Errorf("etcd key is required for etcd source driver")
	}

	etcdSourceConfig := &etcd.Config{
		Endpoints: etcdConfig.Endpoints,
		Timeout:   etcdConfig.Timeout,
		Username:  etcdConfig.Username,
		Password:  etcdConfig.Password,
	}

	if etcdSourceConfig.Timeout == 0 {
		etcdSourceConfig.Timeout = 5 * time.Second
	}

	source, err := etcd.NewEtcdSource(etcdSourceConfig, etcdConfig.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd source: %w", err)
	}

	return source, nil
}

// GetSupportedDrivers returns a list of supported configuration source drivers
func GetSupportedDrivers() []string {
	return []string{"file", "etcd"}
}
