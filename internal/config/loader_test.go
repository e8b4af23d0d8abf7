package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Report.Interval != 30*time.Second {
		t.Errorf("Expected default report interval 30s, got %v", cfg.Report.Interval)
	}
	if cfg.Report.FlushTimeout != 5*time.Second {
		t.Errorf("Expected default flush timeout 5s, got %v", cfg.Report.FlushTimeout)
	}
	if cfg.Report.Sender.Driver != "stdout" {
		t.Errorf("Expected default sender driver stdout, got %s", cfg.Report.Sender.Driver)
	}
	if cfg.Export.Namespace != "bigquery" {
		t.Errorf("Expected default export namespace bigquery, got %s", cfg.Export.Namespace)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Report.Sender.Redis.Stream != "metrelay:updates" {
		t.Errorf("Expected default redis stream metrelay:updates, got %s", cfg.Report.Sender.Redis.Stream)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "metrelay.yaml")

	content := `
report:
  interval: 10s
  sender:
    driver: "http"
    http:
      endpoint: "http://collector:8080/v1/metrics:update"
      timeout: 3s
export:
  namespace: "bigquery"
logging:
  level: "debug"
  format: "console"
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Report.Interval != 10*time.Second {
		t.Errorf("Expected report interval 10s, got %v", cfg.Report.Interval)
	}
	if cfg.Report.Sender.Driver != "http" {
		t.Errorf("Expected sender driver http, got %s", cfg.Report.Sender.Driver)
	}
	if cfg.Report.Sender.HTTP.Endpoint != "http://collector:8080/v1/metrics:update" {
		t.Errorf("Unexpected HTTP endpoint: %s", cfg.Report.Sender.HTTP.Endpoint)
	}
	if cfg.Report.Sender.HTTP.Timeout != 3*time.Second {
		t.Errorf("Expected HTTP timeout 3s, got %v", cfg.Report.Sender.HTTP.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}

	// Values absent from the file keep their defaults
	if cfg.Report.FlushTimeout != 5*time.Second {
		t.Errorf("Expected default flush timeout 5s, got %v", cfg.Report.FlushTimeout)
	}
	if cfg.Debug.Address != ":8435" {
		t.Errorf("Expected default debug address :8435, got %s", cfg.Debug.Address)
	}
}

func TestLoad_FileDoesNotExist(t *testing.T) {
	_, err := Load("/non/existent/metrelay.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent config file")
	}
	if !strings.Contains(err.Error(), "failed to load config from file") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("METRELAY_SENDER_DRIVER", "redis")
	t.Setenv("METRELAY_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("METRELAY_LOG_LEVEL", "warn")
	t.Setenv("METRELAY_ETCD_ENDPOINTS", "etcd-1:2379,etcd-2:2379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Report.Sender.Driver != "redis" {
		t.Errorf("Expected sender driver redis, got %s", cfg.Report.Sender.Driver)
	}
	if cfg.Report.Sender.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Expected redis addr redis.internal:6379, got %s", cfg.Report.Sender.Redis.Addr)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.Logging.Level)
	}
	if len(cfg.ConfigSource.Etcd.Endpoints) != 2 || cfg.ConfigSource.Etcd.Endpoints[1] != "etcd-2:2379" {
		t.Errorf("Unexpected etcd endpoints: %v", cfg.ConfigSource.Etcd.Endpoints)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "metrelay.yaml")

	content := `
logging:
  level: "debug"
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	t.Setenv("METRELAY_LOG_LEVEL", "error")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("Expected environment to override file, got log level %s", cfg.Logging.Level)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "invalid sender driver",
			content: `
report:
  sender:
    driver: "kafka"
`,
			wantErr: "invalid sender driver",
		},
		{
			name: "http driver without endpoint",
			content: `
report:
  sender:
    driver: "http"
`,
			wantErr: "HTTP endpoint cannot be empty",
		},
		{
			name: "invalid log level",
			content: `
logging:
  level: "verbose"
`,
			wantErr: "invalid log level",
		},
		{
			name: "invalid log format",
			content: `
logging:
  format: "xml"
`,
			wantErr: "invalid log format",
		},
		{
			name: "negative report interval",
			content: `
report:
  interval: -5s
`,
			wantErr: "report interval must be positive",
		},
		{
			name: "invalid config source driver",
			content: `
config_source:
  driver: "consul"
`,
			wantErr: "invalid config source driver",
		},
		{
			name: "etcd source without key",
			content: `
config_source:
  driver: "etcd"
  etcd:
    endpoints: ["localhost:2379"]
    key: ""
`,
			wantErr: "etcd key cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "metrelay.yaml")
			if err := os.WriteFile(configFile, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config file: %v", err)
			}

			_, err := Load(configFile)
			if err == nil {
				t.Fatal("Expected validation error but got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetDefaultConfigFile(t *testing.T) {
	t.Setenv("METRELAY_CONFIG_DIR", "/etc/metrelay")

	got := GetDefaultConfigFile()
	want := filepath.Join("/etc/metrelay", "metrelay.yaml")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestCreateConfigSource_UnsupportedDriver(t *testing.T) {
	cfg := &Config{
		ConfigSource: ConfigSourceConfig{Driver: "consul"},
	}

	_, err := CreateConfigSource(cfg)
	if err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
}

func TestCreateConfigSource_File(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "metrelay.yaml")
	if err := os.WriteFile(configFile, []byte("export: {namespace: bigquery}"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := &Config{
		ConfigSource: ConfigSourceConfig{
			Driver: "file",
			File:   FileSourceConfig{Path: configFile},
		},
	}

	source, err := CreateConfigSource(cfg)
	if err != nil {
		t.Fatalf("CreateConfigSource() returned error: %v", err)
	}
	defer source.Close()

	data, err := source.Get()
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if !strings.Contains(string(data), "bigquery") {
		t.Errorf("Unexpected source content: %s", string(data))
	}
}

func TestCreateConfigSource_FileWithoutPath(t *testing.T) {
	cfg := &Config{
		ConfigSource: ConfigSourceConfig{Driver: "file"},
	}

	_, err := CreateConfigSource(cfg)
	if err == nil {
		t.Fatal("Expected error when file path is missing")
	}
}
