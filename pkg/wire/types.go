// Package wire defines the external representation of converted metrics:
// per-step, per-namespace batches of typed metric values. The types carry
// JSON tags for senders that ship batches as JSON; field presence follows
// the update protocol, so optional fields are pointers with omitempty.
package wire

// MetricValue is one converted metric. Exactly one of ValueInt64 and
// ValueHistogram is set.
type MetricValue struct {
	Metric string            `json:"metric"`
	Labels map[string]string `json:"metricLabels,omitempty"`

	ValueInt64     *int64          `json:"valueInt64,omitempty"`
	ValueHistogram *HistogramValue `json:"valueHistogram,omitempty"`
}

// HistogramValue is the wire form of a histogram snapshot. BucketCounts
// carries the counts of buckets 0..n-1 with trailing zero entries removed;
// absent entries are reconstructible as zero.
type HistogramValue struct {
	Count         int64         `json:"count"`
	BucketOptions BucketOptions `json:"bucketOptions"`
	BucketCounts  []int64       `json:"bucketCounts,omitempty"`
	OutlierStats  *OutlierStats `json:"outlierStats,omitempty"`
}

// BucketOptions describes a histogram's bucket layout. Exactly one variant
// is set.
type BucketOptions struct {
	Linear      *LinearOptions `json:"linear,omitempty"`
	Exponential *Base2Exponent `json:"exponential,omitempty"`
}

// LinearOptions mirrors a linear bucket layout.
type LinearOptions struct {
	NumberOfBuckets int     `json:"numberOfBuckets"`
	Width           float64 `json:"width"`
	Start           float64 `json:"start"`
}

// Base2Exponent mirrors a base-2 exponential bucket layout.
type Base2Exponent struct {
	NumberOfBuckets int `json:"numberOfBuckets"`
	Scale           int `json:"scale"`
}

// OutlierStats reports observations that fell outside the bucketed range.
// Each side is present only when its count is nonzero.
type OutlierStats struct {
	UnderflowCount *int64   `json:"underflowCount,omitempty"`
	UnderflowMean  *float64 `json:"underflowMean,omitempty"`
	OverflowCount  *int64   `json:"overflowCount,omitempty"`
	OverflowMean   *float64 `json:"overflowMean,omitempty"`
}

// PerStepNamespaceMetrics groups the converted values of one namespace
// within one processing step. MetricValues preserves processing order.
type PerStepNamespaceMetrics struct {
	OriginalStep     string        `json:"originalStep"`
	MetricsNamespace string        `json:"metricsNamespace"`
	MetricValues     []MetricValue `json:"metricValues"`
}

// Int64 returns a pointer to v for optional wire fields.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v for optional wire fields.
func Float64(v float64) *float64 { return &v }
