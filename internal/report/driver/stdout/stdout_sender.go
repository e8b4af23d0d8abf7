// Package stdout implements a report sender that writes converted batches
// to the process log. It is meant for development and for verifying
// conversion output without a collector.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/metrelay/metrelay/pkg/wire"
)

// Sender logs batches as structured JSON. It implements report.Sender.
type Sender struct {
	logger *zap.Logger
}

// New creates a stdout sender. A nil logger builds a JSON logger writing
// to os.Stdout.
func New(logger *zap.Logger) *Sender {
	if logger == nil {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			zapcore.InfoLevel,
		)
		logger = zap.New(core)
	}
	return &Sender{logger: logger}
}

// Send implements report.Sender. Each batch becomes one log entry carrying
// the full wire payload.
func (s *Sender) Send(ctx context.Context, batches []*wire.PerStepNamespaceMetrics) error {
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("failed to encode batch: %w", err)
		}
		s.logger.Info("metrics update",
			zap.String("step", batch.OriginalStep),
			zap.String("namespace", batch.MetricsNamespace),
			zap.Int("values", len(batch.MetricValues)),
			zap.ByteString("payload", payload),
		)
	}
	return nil
}

// Name implements report.Sender.
func (s *Sender) Name() string {
	return "stdout"
}

// Close implements report.Sender.
func (s *Sender) Close() error {
	_ = s.logger.Sync()
	return nil
}
