package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file with environment variable overrides
func Load(configFile string) (*Config, error) {
	// Set default configuration
	cfg := &Config{
		Report: ReportConfig{
			Interval:     30 * time.Second,
			FlushTimeout: 5 * time.Second,
			Sender: SenderConfig{
				Driver: "stdout",
				HTTP: HTTPConfig{
					Endpoint:  "",
					Timeout:   10 * time.Second,
					Headers:   make(map[string]string),
					EnableH2C: false,
				},
				Redis: RedisConfig{
					Addr:   "localhost:6379",
					DB:     0,
					Stream: "metrelay:updates",
					MaxLen: 8192,
				},
			},
		},
		Export: ExportConfig{
			Namespace: "bigquery",
		},
		Debug: DebugConfig{
			Enabled: false,
			Address: ":8435",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		ConfigSource: ConfigSourceConfig{
			Driver: "file",
			File: FileSourceConfig{
				Path:         "",
				PollInterval: 5 * time.Second,
			},
			Etcd: EtcdSourceConfig{
				Endpoints: []string{"localhost:2379"},
				Key:       "/metrelay/config",
				Timeout:   5 * time.Second,
			},
		},
	}

	// Load from file if exists
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(cfg *Config, filename string) error {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", filename)
	}

	// Read file
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	// Sender configuration
	if driver := os.Getenv("METRELAY_SENDER_DRIVER"); driver != "" {
		cfg.Report.Sender.Driver = driver
	}
	if endpoint := os.Getenv("METRELAY_HTTP_ENDPOINT"); endpoint != "" {
		cfg.Report.Sender.HTTP.Endpoint = endpoint
	}
	if addr := os.Getenv("METRELAY_REDIS_ADDR"); addr != "" {
		cfg.Report.Sender.Redis.Addr = addr
	}
	if password := os.Getenv("METRELAY_REDIS_PASSWORD"); password != "" {
		cfg.Report.Sender.Redis.Password = password
	}

	// Export configuration
	if namespace := os.Getenv("METRELAY_EXPORT_NAMESPACE"); namespace != "" {
		cfg.Export.Namespace = namespace
	}

	// Debug configuration
	if addr := os.Getenv("METRELAY_DEBUG_ADDRESS"); addr != "" {
		cfg.Debug.Address = addr
	}

	// Config source configuration
	if endpoints := os.Getenv("METRELAY_ETCD_ENDPOINTS"); endpoints != "" {
		cfg.ConfigSource.Etcd.Endpoints = strings.Split(endpoints, ",")
	}
	if username := os.Getenv("METRELAY_ETCD_USERNAME"); username != "" {
		cfg.ConfigSource.Etcd.Username = username
	}
	if password := os.Getenv("METRELAY_ETCD_PASSWORD"); password != "" {
		cfg.ConfigSource.Etcd.Password = password
	}

	// Logging configuration
	if logLevel := os.Getenv("METRELAY_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("METRELAY_LOG_FORMAT"); logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate reporting intervals
	if cfg.Report.Interval <= 0 {
		return fmt.Errorf("report interval must be positive")
	}
	if cfg.Report.FlushTimeout <= 0 {
		return fmt.Errorf("report flush timeout must be positive")
	}

	// Validate sender driver
	validDrivers := map[string]bool{
		"http":   true,
		"redis":  true,
		"stdout": true,
	}
	if !validDrivers[cfg.Report.Sender.Driver] {
		return fmt.Errorf("invalid sender driver: %s", cfg.Report.Sender.Driver)
	}

	if cfg.Report.Sender.Driver == "http" && cfg.Report.Sender.HTTP.Endpoint == "" {
		return fmt.Errorf("HTTP endpoint cannot be empty when sender driver is http")
	}
	if cfg.Report.Sender.Driver == "redis" && cfg.Report.Sender.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty when sender driver is redis")
	}

	// Validate export namespace
	if cfg.Export.Namespace == "" {
		return fmt.Errorf("export namespace cannot be empty")
	}

	// Validate debug address
	if cfg.Debug.Enabled && cfg.Debug.Address == "" {
		return fmt.Errorf("debug address cannot be empty when debug server is enabled")
	}

	// Validate config source driver
	validSources := map[string]bool{
		"file": true,
		"etcd": true,
	}
	if cfg.ConfigSource.Driver != "" && !validSources[cfg.ConfigSource.Driver] {
		return fmt.Errorf("invalid config source driver: %s", cfg.ConfigSource.Driver)
	}

	if cfg.ConfigSource.Driver == "etcd" {
		if len(cfg.ConfigSource.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd endpoints cannot be empty")
		}
		if cfg.ConfigSource.Etcd.Key == "" {
			return fmt.Errorf("etcd key cannot be empty")
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", cfg.Logging.Format)
	}

	return nil
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("METRELAY_CONFIG_DIR"); dir != "" {
		return dir
	}

	// Default to current directory
	return "."
}

// GetDefaultConfigFile returns the default configuration file path
func GetDefaultConfigFile() string {
	configDir := GetConfigDir()
	return filepath.Join(configDir, "metrelay.yaml")
}
