package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/metrelay/metrelay/pkg/export"
	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/wire"
)

// Common errors for reporter lifecycle management
var (
	// ErrAlreadyStarted indicates the reporter loop is already running
	ErrAlreadyStarted = errors.New("reporter already started")

	// ErrNotStarted indicates the reporter loop was never started
	ErrNotStarted = errors.New("reporter not started")
)

// DefaultInterval is the reporting period used when Options.Interval is
// unset.
const DefaultInterval = 30 * time.Second

// defaultFlushTimeout bounds the final delivery attempt during Stop.
const defaultFlushTimeout = 5 * time.Second

// Options configures a Reporter.
type Options struct {
	// Interval is the reporting period. Defaults to DefaultInterval.
	Interval time.Duration

	// FlushTimeout bounds the final delivery attempt during Stop.
	FlushTimeout time.Duration

	// Logger receives send failures. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Reporter drives the snapshot/convert/send cycle on a fixed interval. One
// goroutine runs the loop; Stop cancels it and performs a final flush so
// delta snapshots taken since the last tick are not lost.
type Reporter struct {
	conv         *export.Converter
	source       Source
	sender       Sender
	interval     time.Duration
	flushTimeout time.Duration
	logger       *zap.Logger

	failures metrics.Counter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lastMu sync.RWMutex
	last   []*wire.PerStepNamespaceMetrics
	lastAt time.Time
}

// NewReporter creates a reporter that converts snapshots from source with
// conv and delivers them through sender.
func NewReporter(conv *export.Converter, source Source, sender Sender, opts Options) *Reporter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Reporter{
		conv:         conv,
		source:       source,
		sender:       sender,
		interval:     opts.Interval,
		flushTimeout: opts.FlushTimeout,
		logger:       opts.Logger,
	}
}

// Start launches the reporting loop. It returns ErrAlreadyStarted if the
// loop is already running.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx)
	return nil
}

// Stop cancels the loop, waits for it to exit, and closes the sender. The
// loop performs one final flush before exiting.
func (r *Reporter) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	<-done
	return r.sender.Close()
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), r.flushTimeout)
			if err := r.ReportOnce(flushCtx); err != nil {
				r.logger.Warn("final flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := r.ReportOnce(ctx); err != nil {
				r.logger.Warn("report failed",
					zap.String("sender", r.sender.Name()),
					zap.Error(err))
			}
		}
	}
}

// ReportOnce runs one snapshot/convert/send cycle. Ticks that convert to
// nothing do not touch the sender.
func (r *Reporter) ReportOnce(ctx context.Context) error {
	var batches []*wire.PerStepNamespaceMetrics
	for _, snap := range r.source.Snapshots() {
		batches = append(batches, r.conv.ConvertSnapshot(snap)...)
	}
	if len(batches) == 0 {
		return nil
	}

	r.lastMu.Lock()
	r.last = batches
	r.lastAt = time.Now()
	r.lastMu.Unlock()

	if err := r.sender.Send(ctx, batches); err != nil {
		r.failures.Inc()
		return fmt.Errorf("failed to send batches via %s: %w", r.sender.Name(), err)
	}
	return nil
}

// Failures returns the number of failed delivery attempts.
func (r *Reporter) Failures() int64 {
	return r.failures.Value()
}

// LastReport returns the most recently converted batches and when they were
// converted. It returns nil before the first non-empty conversion.
func (r *Reporter) LastReport() ([]*wire.PerStepNamespaceMetrics, time.Time) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last, r.lastAt
}
