package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	prombridge "github.com/metrelay/metrelay/internal/bridge/prometheus"
	"github.com/metrelay/metrelay/internal/config"
	"github.com/metrelay/metrelay/internal/debug"
	"github.com/metrelay/metrelay/internal/logging"
	reportdriver "github.com/metrelay/metrelay/internal/report"
	pkgConfig "github.com/metrelay/metrelay/pkg/config"
	"github.com/metrelay/metrelay/pkg/export"
	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/report"
	"github.com/metrelay/metrelay/pkg/sinks/bigquery"
)

var (
	configFile = flag.String("config", "", "Configuration file path")
	step       = flag.String("step", "WriteToBigQuery", "Step name reported with every batch")
	synthetic  = flag.Bool("synthetic", true, "Generate a synthetic BigQuery write workload")
	version    = flag.Bool("version", false, "Show version information")
)

const (
	// Version information
	Version   = "v1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Metrelay Agent %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Create the delivery driver configured for this agent
	sender, err := reportdriver.NewSender(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create sender", zap.Error(err))
	}

	registry := metrics.NewRegistry(*step)
	conv := export.NewConverter(bigquery.Namespace, bigquery.Parser{})

	reporter := report.NewReporter(conv, report.RegistrySource(registry), sender, report.Options{
		Interval:     cfg.Report.Interval,
		FlushTimeout: cfg.Report.FlushTimeout,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reporter.Start(ctx); err != nil {
		logger.Fatal("Failed to start reporter", zap.Error(err))
	}

	logger.Info("Reporter started",
		zap.String("step", *step),
		zap.String("sender", sender.Name()),
		zap.Duration("interval", cfg.Report.Interval))

	// Watch for configuration updates when a source is configured
	if cfg.ConfigSource.Driver != "" {
		configSource, err := config.CreateConfigSource(cfg)
		if err != nil {
			logger.Fatal("Failed to create configuration source", zap.Error(err))
		}
		defer func() {
			if err := configSource.Close(); err != nil {
				logger.Warn("Failed to close configuration source", zap.Error(err))
			}
		}()

		go watchConfig(ctx, configSource, cfg, logger)
		logger.Info("Configuration source initialized",
			zap.String("driver", cfg.ConfigSource.Driver))
	}

	// Start the debug server
	var debugServer *debug.Server
	if cfg.Debug.Enabled {
		debugServer, err = debug.NewServer(cfg.Debug.Address, reporter, prombridge.NewCollector(registry), logger)
		if err != nil {
			logger.Fatal("Failed to create debug server", zap.Error(err))
		}
		if err := debugServer.Start(); err != nil {
			logger.Fatal("Failed to start debug server", zap.Error(err))
		}
	}

	if *synthetic {
		sink := bigquery.New(registry)
		go runWorkload(ctx, sink)
		logger.Info("Synthetic workload started")
	}

	// Wait for interrupt signal to gracefully shut down the agent
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agent...")
	cancel()

	if err := reporter.Stop(); err != nil {
		logger.Error("Failed to stop reporter", zap.Error(err))
	}
	if debugServer != nil {
		if err := debugServer.Stop(); err != nil {
			logger.Error("Failed to stop debug server", zap.Error(err))
		}
	}

	logger.Info("Agent stopped", zap.Int64("send_failures", reporter.Failures()))
}

// watchConfig consumes configuration updates from the source. Report and
// transport settings are fixed at startup, so updates are surfaced in the
// log for the operator rather than applied live.
func watchConfig(ctx context.Context, source pkgConfig.Source, current *config.Config, logger *zap.Logger) {
	ch, err := source.Watch(ctx)
	if err != nil {
		logger.Error("Failed to watch configuration source", zap.Error(err))
		return
	}

	for data := range ch {
		var updated config.Config
		if err := yaml.Unmarshal(data, &updated); err != nil {
			logger.Warn("Ignoring malformed configuration update", zap.Error(err))
			continue
		}

		if updated.Report.Interval != 0 && updated.Report.Interval != current.Report.Interval {
			logger.Info("Configuration update changes report interval; restart to apply",
				zap.Duration("current", current.Report.Interval),
				zap.Duration("updated", updated.Report.Interval))
		}
		if updated.Report.Sender.Driver != "" && updated.Report.Sender.Driver != current.Report.Sender.Driver {
			logger.Info("Configuration update changes sender driver; restart to apply",
				zap.String("current", current.Report.Sender.Driver),
				zap.String("updated", updated.Report.Sender.Driver))
		}
	}
}

// runWorkload feeds the BigQuery sink with a synthetic write workload so
// the full snapshot/convert/send cycle is observable end to end.
func runWorkload(ctx context.Context, sink *bigquery.Sink) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	tables := []string{"orders", "events", "audit"}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		table := tables[i%len(tables)]
		sink.RPCRequest(bigquery.MethodAppendRows, "OK")
		sink.RPCLatency(bigquery.MethodAppendRows, time.Duration(20+rng.Intn(180))*time.Millisecond)
		sink.RowsAppended(bigquery.RowStatusSuccessful, table, int64(50+rng.Intn(500)))

		if i%25 == 24 {
			sink.RPCRequest(bigquery.MethodAppendRows, "UNAVAILABLE")
			sink.RowsAppended(bigquery.RowStatusRetried, table, int64(rng.Intn(50)))
			sink.ThrottledTime(bigquery.MethodAppendRows, time.Duration(rng.Intn(400))*time.Millisecond)
		}
		if i%100 == 99 {
			sink.RPCRequest(bigquery.MethodFlushRows, "OK")
			sink.RPCLatency(bigquery.MethodFlushRows, time.Duration(5+rng.Intn(40))*time.Millisecond)
		}
	}
}
