// Package report wires configured sender drivers to the reporting loop.
package report

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/metrelay/metrelay/internal/config"
	httpdriver "github.com/metrelay/metrelay/internal/report/driver/http"
	redisdriver "github.com/metrelay/metrelay/internal/report/driver/redis"
	"github.com/metrelay/metrelay/internal/report/driver/stdout"
	pkgReport "github.com/metrelay/metrelay/pkg/report"
)

// NewSender creates a report sender based on the driver specified in the
// configuration. It acts as a factory function that returns the appropriate
// report.Sender implementation.
func NewSender(cfg *config.Config, logger *zap.Logger) (pkgReport.Sender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	senderConfig := cfg.Report.Sender

	switch senderConfig.Driver {
	case "http":
		return createHTTPSender(senderConfig)
	case "redis":
		return createRedisSender(senderConfig)
	case "stdout":
		return stdout.New(logger), nil
	default:
		return nil, fmt.Errorf("unsupported sender driver: %s", senderConfig.Driver)
	}
}

// createHTTPSender creates an HTTP-based report sender
func createHTTPSender(senderConfig config.SenderConfig) (pkgReport.Sender, error) {
	httpConfig := httpdriver.DefaultConfig()
	httpConfig.Endpoint = senderConfig.HTTP.Endpoint
	httpConfig.EnableH2C = senderConfig.HTTP.EnableH2C

	if senderConfig.HTTP.Timeout > 0 {
		httpConfig.Timeout = senderConfig.HTTP.Timeout
	}
	if len(senderConfig.HTTP.Headers) > 0 {
		httpConfig.Headers = senderConfig.HTTP.Headers
	}

	sender, err := httpdriver.New(httpConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP sender: %w", err)
	}

	return sender, nil
}

// createRedisSender creates a Redis Streams report sender
func createRedisSender(senderConfig config.SenderConfig) (pkgReport.Sender, error) {
	redisConfig := redisdriver.DefaultConfig()

	if senderConfig.Redis.Addr != "" {
		redisConfig.Addr = senderConfig.Redis.Addr
	}
	redisConfig.Password = senderConfig.Redis.Password
	redisConfig.DB = senderConfig.Redis.DB

	if senderConfig.Redis.Stream != "" {
		redisConfig.Stream = senderConfig.Redis.Stream
	}
	if senderConfig.Redis.MaxLen != 0 {
		redisConfig.MaxLen = senderConfig.Redis.MaxLen
	}

	sender, err := redisdriver.New(redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis sender: %w", err)
	}

	return sender, nil
}

// GetSupportedDrivers returns a list of supported sender drivers
func GetSupportedDrivers() []string {
	return []string{"http", "redis", "stdout"}
}
