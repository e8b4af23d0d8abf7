package export

import (
	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/metrics/naming"
	"github.com/metrelay/metrelay/pkg/wire"
)

// NameParser resolves a raw metric name within a namespace into its
// structured form. Implementations must be deterministic and pure.
// Returning ok=false marks the name as unparseable or not owned by the
// namespace; the converter skips such metrics silently.
type NameParser interface {
	Parse(namespace, name string) (naming.ParsedName, bool)
}

// ParserFunc adapts a function to the NameParser interface.
type ParserFunc func(namespace, name string) (naming.ParsedName, bool)

// Parse implements NameParser.
func (f ParserFunc) Parse(namespace, name string) (naming.ParsedName, bool) {
	return f(namespace, name)
}

// Converter translates step-scoped metric snapshots into per-namespace wire
// batches. It is stateless after construction and safe for concurrent use
// as long as each call receives its own snapshot instances.
type Converter struct {
	namespace string
	parser    NameParser
}

// NewConverter creates a converter that translates counters of the given
// recognized namespace. Histogram ownership is decided by the parser alone.
func NewConverter(namespace string, parser NameParser) *Converter {
	return &Converter{namespace: namespace, parser: parser}
}

// Convert translates one step's counter and histogram snapshots into
// per-namespace batches. Metrics that are zero-valued, unparseable, outside
// the recognized namespace (counters), or carry an unsupported bucket
// layout (histograms) contribute nothing. Namespaces without any converted
// value produce no batch. Within a batch, counters precede histograms;
// batch order follows map iteration and is not significant.
func (c *Converter) Convert(stepName string, counters map[metrics.Name]int64, histograms map[metrics.Name]metrics.HistogramSnapshot) []*wire.PerStepNamespaceMetrics {
	batches := make(map[string]*wire.PerStepNamespaceMetrics)

	for name, value := range counters {
		converted, ok := c.convertCounter(name, value)
		if !ok {
			continue
		}
		batch := batchFor(batches, stepName, name.Namespace)
		batch.MetricValues = append(batch.MetricValues, converted)
	}

	for name, snap := range histograms {
		converted, ok := c.convertHistogram(name, snap)
		if !ok {
			continue
		}
		batch := batchFor(batches, stepName, name.Namespace)
		batch.MetricValues = append(batch.MetricValues, converted)
	}

	out := make([]*wire.PerStepNamespaceMetrics, 0, len(batches))
	for _, batch := range batches {
		out = append(out, batch)
	}
	return out
}

// ConvertSnapshot converts a captured step snapshot.
func (c *Converter) ConvertSnapshot(snap metrics.StepSnapshot) []*wire.PerStepNamespaceMetrics {
	return c.Convert(snap.Step, snap.Counters, snap.Histograms)
}

// convertCounter translates a single counter value. It reports ok=false for
// zero values, names outside the recognized namespace, unparseable names,
// and names that parse to an empty base.
func (c *Converter) convertCounter(name metrics.Name, value int64) (wire.MetricValue, bool) {
	if value == 0 || name.Namespace != c.namespace {
		return wire.MetricValue{}, false
	}
	parsed, ok := c.parser.Parse(name.Namespace, name.Name)
	if !ok || parsed.Base == "" {
		return wire.MetricValue{}, false
	}
	return wire.MetricValue{
		Metric:     parsed.Base,
		Labels:     parsed.Labels,
		ValueInt64: wire.Int64(value),
	}, true
}

// convertHistogram translates a single histogram snapshot. It reports
// ok=false for snapshots with zero total observations, unparseable names,
// names that parse to an empty base, and bucket layouts other than linear
// and exponential.
func (c *Converter) convertHistogram(name metrics.Name, snap metrics.HistogramSnapshot) (wire.MetricValue, bool) {
	if snap.TotalCount() == 0 {
		return wire.MetricValue{}, false
	}
	parsed, ok := c.parser.Parse(name.Namespace, name.Name)
	if !ok || parsed.Base == "" {
		return wire.MetricValue{}, false
	}

	var options wire.BucketOptions
	switch layout := snap.BucketType().(type) {
	case metrics.LinearBuckets:
		options.Linear = &wire.LinearOptions{
			NumberOfBuckets: layout.Count,
			Width:           layout.Width,
			Start:           layout.Start,
		}
	case metrics.ExponentialBuckets:
		options.Exponential = &wire.Base2Exponent{
			NumberOfBuckets: layout.Count,
			Scale:           layout.Scale,
		}
	default:
		return wire.MetricValue{}, false
	}

	return wire.MetricValue{
		Metric: parsed.Base,
		Labels: parsed.Labels,
		ValueHistogram: &wire.HistogramValue{
			Count:         snap.TotalCount(),
			BucketOptions: options,
			BucketCounts:  trimTrailingZeros(bucketCounts(snap)),
			OutlierStats:  outlierStats(snap),
		},
	}, true
}

// bucketCounts reads the per-bucket counts for indices 0..n-1 in order,
// where n comes from the bucket layout.
func bucketCounts(snap metrics.HistogramSnapshot) []int64 {
	n := snap.BucketType().NumBuckets()
	counts := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		counts = append(counts, snap.Count(i))
	}
	return counts
}

// trimTrailingZeros removes zero entries from the end of counts. Absent
// trailing entries are reconstructible as zero on the receiving side.
func trimTrailingZeros(counts []int64) []int64 {
	end := len(counts)
	for end > 0 && counts[end-1] == 0 {
		end--
	}
	return counts[:end]
}

// outlierStats assembles the outlier record. It returns nil when both
// outlier counts are zero; each side is set only when its own count is
// nonzero.
func outlierStats(snap metrics.HistogramSnapshot) *wire.OutlierStats {
	under, over := snap.BottomCount(), snap.TopCount()
	if under == 0 && over == 0 {
		return nil
	}
	stats := &wire.OutlierStats{}
	if under > 0 {
		stats.UnderflowCount = wire.Int64(under)
		stats.UnderflowMean = wire.Float64(snap.BottomMean())
	}
	if over > 0 {
		stats.OverflowCount = wire.Int64(over)
		stats.OverflowMean = wire.Float64(snap.TopMean())
	}
	return stats
}

// batchFor returns the batch accumulating values for namespace, creating it
// on first use with the step name recorded.
func batchFor(batches map[string]*wire.PerStepNamespaceMetrics, stepName, namespace string) *wire.PerStepNamespaceMetrics {
	if batch, ok := batches[namespace]; ok {
		return batch
	}
	batch := &wire.PerStepNamespaceMetrics{
		OriginalStep:     stepName,
		MetricsNamespace: namespace,
		MetricValues:     []wire.MetricValue{},
	}
	batches[namespace] = batch
	return batch
}
