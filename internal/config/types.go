package config

import "time"

// Config represents the complete agent configuration
type Config struct {
	Report       ReportConfig       `yaml:"report"`
	Export       ExportConfig       `yaml:"export"`
	Debug        DebugConfig        `yaml:"debug"`
	Logging      LoggingConfig      `yaml:"logging"`
	ConfigSource ConfigSourceConfig `yaml:"config_source"`
}

// ReportConfig represents reporting loop configuration
type ReportConfig struct {
	Interval     time.Duration `yaml:"interval"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
	Sender       SenderConfig  `yaml:"sender"`
}

// SenderConfig represents sender driver configuration
type SenderConfig struct {
	Driver string      `yaml:"driver"`
	HTTP   HTTPConfig  `yaml:"http"`
	Redis  RedisConfig `yaml:"redis"`
}

// HTTPConfig represents HTTP sender configuration
type HTTPConfig struct {
	Endpoint  string            `yaml:"endpoint"`
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	EnableH2C bool              `yaml:"enable_h2c"`
}

// RedisConfig represents Redis Streams sender configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// ExportConfig represents snapshot conversion configuration
type ExportConfig struct {
	Namespace string `yaml:"namespace"`
}

// DebugConfig represents debug HTTP server configuration
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ConfigSourceConfig represents dynamic configuration source settings
type ConfigSourceConfig struct {
	Driver string           `yaml:"driver"`
	File   FileSourceConfig `yaml:"file"`
	Etcd   EtcdSourceConfig `yaml:"etcd"`
}

// FileSourceConfig represents file-based configuration source settings
type FileSourceConfig struct {
	Path         string        `yaml:"path"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// EtcdSourceConfig represents etcd-based configuration source settings
type EtcdSourceConfig struct {
	Endpoints []string      `yaml:"endpoints"`
	Key       string        `yaml:"key"`
	Timeout   time.Duration `yaml:"timeout"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
}
