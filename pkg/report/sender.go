// Package report periodically converts metric snapshots and hands the
// resulting batches to a pluggable sender. The reporter owns the timing
// and the conversion; senders own the wire and make exactly one delivery
// attempt per batch collection.
package report

import (
	"context"

	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/wire"
)

// Sender ships one collection of converted batches. Implementations make a
// single attempt; retrying and buffering are deliberately out of scope.
type Sender interface {
	// Send delivers the batches. It must honor ctx cancellation.
	Send(ctx context.Context, batches []*wire.PerStepNamespaceMetrics) error

	// Name identifies the sender in logs and errors.
	Name() string

	// Close releases any resources held by the sender.
	Close() error
}

// Source yields the step snapshots to convert on each reporting tick.
type Source interface {
	Snapshots() []metrics.StepSnapshot
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() []metrics.StepSnapshot

// Snapshots implements Source.
func (f SourceFunc) Snapshots() []metrics.StepSnapshot {
	return f()
}

// RegistrySource yields delta snapshots of the given registries: every tick
// reports what accumulated since the previous one.
func RegistrySource(regs ...*metrics.Registry) Source {
	return SourceFunc(func() []metrics.StepSnapshot {
		out := make([]metrics.StepSnapshot, 0, len(regs))
		for _, reg := range regs {
			out = append(out, reg.SnapshotAndReset())
		}
		return out
	})
}
