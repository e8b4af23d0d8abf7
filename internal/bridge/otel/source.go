// Package otel ingests OpenTelemetry metric snapshots into the internal
// model so that OTel-instrumented code can be relayed without touching the
// registry API directly.
//
// A Source wraps an sdk/metric Reader and renders each collection as one
// step snapshot: monotonic int64 sums become counters, explicit-bounds
// histograms with uniformly spaced boundaries become linear-bucket
// histograms, and base-2 exponential histograms become exponential-bucket
// histograms. Attribute sets are packed into the metric name as labels.
// Everything else (gauges, float sums, non-uniform boundaries) is skipped.
//
// Two OTel shapes do not map exactly and are approximated:
//
//   - OTel buckets are open below and closed above, the internal model is
//     the reverse. Boundary-exact observations may therefore shift by one
//     bucket.
//   - Outlier means are not tracked by OTel. The recorded Min and Max
//     stand in for the mean of the bottom and top outliers.
//
// Readers used for periodic relaying should be constructed with
// DeltaTemporalitySelector so each collection carries only the interval's
// observations.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/metrics/naming"
	"github.com/metrelay/metrelay/pkg/report"
)

// maxIngestBuckets bounds the bucket count of ingested exponential
// layouts. Data points with a wider positive range are downscaled until
// they fit.
const maxIngestBuckets = 320

// Source adapts an sdk/metric Reader to the reporting loop. All metrics
// collected from the reader are attributed to a single step.
type Source struct {
	reader    sdkmetric.Reader
	namespace string
	step      string
	logger    *zap.Logger
}

var _ report.Source = (*Source)(nil)

// NewSource creates a source that collects from reader and labels every
// snapshot with the given namespace and step.
func NewSource(reader sdkmetric.Reader, namespace, step string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		reader:    reader,
		namespace: namespace,
		step:      step,
		logger:    logger,
	}
}

// DeltaTemporalitySelector returns a temporality selector that makes every
// instrument report per-collection deltas. Pass it to the reader when the
// source feeds a periodic reporting loop.
func DeltaTemporalitySelector() sdkmetric.TemporalitySelector {
	return func(sdkmetric.InstrumentKind) metricdata.Temporality {
		return metricdata.DeltaTemporality
	}
}

// Snapshots collects the reader's current state and converts it to step
// snapshots. An empty collection yields no snapshots.
func (s *Source) Snapshots() []metrics.StepSnapshot {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(context.Background(), &rm); err != nil {
		s.logger.Warn("failed to collect otel metrics", zap.Error(err))
		return nil
	}

	snap := metrics.StepSnapshot{
		Step:       s.step,
		Counters:   make(map[metrics.Name]int64),
		Histograms: make(map[metrics.Name]metrics.HistogramSnapshot),
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			s.ingest(&snap, m)
		}
	}

	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 {
		return nil
	}
	return []metrics.StepSnapshot{snap}
}

// ingest folds one collected metric into the snapshot
func (s *Source) ingest(snap *metrics.StepSnapshot, m metricdata.Metrics) {
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		if !data.IsMonotonic {
			s.skip(m, "non-monotonic sum")
			return
		}
		for _, dp := range data.DataPoints {
			name := metrics.NewName(s.namespace, packName(m.Name, dp.Attributes))
			snap.Counters[name] += dp.Value
		}
	case metricdata.Histogram[int64]:
		for _, dp := range data.DataPoints {
			s.ingestExplicit(snap, m.Name, explicitPoint[int64]{dp})
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			s.ingestExplicit(snap, m.Name, explicitPoint[float64]{dp})
		}
	case metricdata.ExponentialHistogram[int64]:
		for _, dp := range data.DataPoints {
			s.ingestExponential(snap, m.Name, exponentialPoint[int64]{dp})
		}
	case metricdata.ExponentialHistogram[float64]:
		for _, dp := range data.DataPoints {
			s.ingestExponential(snap, m.Name, exponentialPoint[float64]{dp})
		}
	default:
		s.skip(m, fmt.Sprintf("%T", m.Data))
	}
}

func (s *Source) skip(m metricdata.Metrics, reason string) {
	s.logger.Debug("skipping otel metric",
		zap.String("metric", m.Name),
		zap.String("reason", reason),
	)
}

func (s *Source) ingestExplicit(snap *metrics.StepSnapshot, metricName string, p histogramPoint) {
	hs, ok := p.snapshot()
	if !ok {
		s.logger.Debug("skipping otel histogram without uniform boundaries",
			zap.String("metric", metricName),
		)
		return
	}
	name := metrics.NewName(s.namespace, packName(metricName, p.attributes()))
	snap.Histograms[name] = hs
}

func (s *Source) ingestExponential(snap *metrics.StepSnapshot, metricName string, p histogramPoint) {
	hs, ok := p.snapshot()
	if !ok {
		s.logger.Debug("skipping otel exponential histogram outside representable range",
			zap.String("metric", metricName),
		)
		return
	}
	name := metrics.NewName(s.namespace, packName(metricName, p.attributes()))
	snap.Histograms[name] = hs
}

// histogramPoint abstracts the two histogram data point shapes
type histogramPoint interface {
	attributes() attribute.Set
	snapshot() (metrics.HistogramSnapshot, bool)
}

type explicitPoint[N int64 | float64] struct {
	dp metricdata.HistogramDataPoint[N]
}

func (p explicitPoint[N]) attributes() attribute.Set { return p.dp.Attributes }

func (p explicitPoint[N]) snapshot() (metrics.HistogramSnapshot, bool) {
	layout, ok := linearLayout(p.dp.Bounds)
	if !ok {
		return metrics.HistogramSnapshot{}, false
	}
	if len(p.dp.BucketCounts) != len(p.dp.Bounds)+1 {
		return metrics.HistogramSnapshot{}, false
	}

	// OTel bucket 0 is (-inf, bounds[0]] and the last bucket is
	// (bounds[n-1], +inf); they become the bottom and top outliers.
	counts := make([]int64, layout.Count)
	for i := 1; i < len(p.dp.BucketCounts)-1; i++ {
		counts[i-1] = int64(p.dp.BucketCounts[i])
	}
	bottomCount := int64(p.dp.BucketCounts[0])
	topCount := int64(p.dp.BucketCounts[len(p.dp.BucketCounts)-1])

	var bottomMean, topMean float64
	if bottomCount > 0 {
		bottomMean = layout.Start
		if v, defined := p.dp.Min.Value(); defined {
			bottomMean = float64(v)
		}
	}
	if topCount > 0 {
		topMean = layout.RangeTo()
		if v, defined := p.dp.Max.Value(); defined {
			topMean = float64(v)
		}
	}

	return metrics.NewHistogramSnapshot(layout, counts, float64(p.dp.Sum), topCount, topMean, bottomCount, bottomMean), true
}

type exponentialPoint[N int64 | float64] struct {
	dp metricdata.ExponentialHistogramDataPoint[N]
}

func (p exponentialPoint[N]) attributes() attribute.Set { return p.dp.Attributes }

func (p exponentialPoint[N]) snapshot() (metrics.HistogramSnapshot, bool) {
	offset := int(p.dp.PositiveBucket.Offset)
	layout, down, ok := exponentialLayout(int(p.dp.Scale), offset, len(p.dp.PositiveBucket.Counts))
	if !ok {
		return metrics.HistogramSnapshot{}, false
	}

	counts := make([]int64, layout.Count)
	counts[0] += int64(p.dp.ZeroCount)

	var topCount int64
	for k, c := range p.dp.PositiveBucket.Counts {
		idx := (offset + k) >> down
		switch {
		case idx < 0:
			// Sub-one values share the first bucket with zeros.
			counts[0] += int64(c)
		case idx >= layout.Count:
			topCount += int64(c)
		default:
			counts[idx] += int64(c)
		}
	}

	// Negative observations sit below the layout's range.
	var bottomCount int64
	for _, c := range p.dp.NegativeBucket.Counts {
		bottomCount += int64(c)
	}

	var bottomMean, topMean float64
	if bottomCount > 0 {
		if v, defined := p.dp.Min.Value(); defined {
			bottomMean = float64(v)
		}
	}
	if topCount > 0 {
		topMean = layout.RangeTo()
		if v, defined := p.dp.Max.Value(); defined {
			topMean = float64(v)
		}
	}

	return metrics.NewHistogramSnapshot(layout, counts, float64(p.dp.Sum), topCount, topMean, bottomCount, bottomMean), true
}

// linearLayout derives a linear bucket layout from uniformly spaced
// boundaries. Non-uniform spacing reports false.
func linearLayout(bounds []float64) (metrics.LinearBuckets, bool) {
	if len(bounds) < 2 {
		return metrics.LinearBuckets{}, false
	}
	width := bounds[1] - bounds[0]
	if width <= 0 {
		return metrics.LinearBuckets{}, false
	}
	for i := 2; i < len(bounds); i++ {
		if diff := bounds[i] - bounds[i-1]; diff < width-1e-9*width || diff > width+1e-9*width {
			return metrics.LinearBuckets{}, false
		}
	}
	return metrics.LinearBuckets{Start: bounds[0], Width: width, Count: len(bounds) - 1}, true
}

// exponentialLayout picks a scale and bucket count covering the data
// point's positive range. Bucket resolution is halved (scale reduced by
// one) until the range fits the ingest budget; the count is then capped at
// the widest span a layout of that scale can represent, so buckets beyond
// the cap surface as top outliers. Downscaling cannot shrink the span
// itself: halving the count doubles each bucket's width, so the cap is the
// only way to bound it. Reports false when no scale yields a usable layout.
func exponentialLayout(scale, offset, buckets int) (metrics.ExponentialBuckets, int, bool) {
	for down := 0; ; down++ {
		s := scale - down
		if s < -5 {
			return metrics.ExponentialBuckets{}, 0, false
		}

		count := 1
		if buckets > 0 {
			if top := (offset + buckets - 1) >> down; top >= 0 {
				count = top + 1
			}
		}
		if count > maxIngestBuckets {
			continue
		}
		if max := representableBuckets(s); count > max {
			count = max
		}

		layout, err := metrics.NewExponentialBuckets(s, count)
		if err != nil {
			continue
		}
		return layout, down, true
	}
}

// representableBuckets returns the largest bucket count whose span stays
// within the accumulator's cap at the given scale.
func representableBuckets(scale int) int {
	if scale < 0 {
		return metrics.MaxExponentialSpan >> uint(-scale)
	}
	return metrics.MaxExponentialSpan << uint(scale)
}

// packName encodes a metric name and its attributes as a packed name.
// Attribute sets iterate in key order, so packing is deterministic.
func packName(metricName string, attrs attribute.Set) string {
	b := naming.NewBuilder(metricName)
	for _, kv := range attrs.ToSlice() {
		b.Label(string(kv.Key), kv.Value.Emit())
	}
	return b.Build()
}
