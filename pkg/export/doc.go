// Package export converts in-process metric snapshots into per-step,
// per-namespace batches of wire metric values.
//
// The conversion is a single synchronous pass with no I/O and no internal
// state: counters first, histograms second, each translated independently
// and appended to a lazily created batch keyed by namespace. Metrics that
// cannot or should not be exported are filtered, not errored: zero-valued
// counters, counters outside the recognized namespace, histograms with no
// observations, names the parser rejects or resolves to an empty base, and
// histogram layouts other than linear and exponential.
//
// Histogram encoding is where the care goes. Bucket layout parameters are
// copied verbatim, trailing zero buckets are stripped to keep sparse
// histograms small, and out-of-range observations are reported as separate
// underflow/overflow statistics so no observation is counted twice.
//
//	conv := export.NewConverter(bigquery.Namespace, bigquery.Parser{})
//	batches := conv.ConvertSnapshot(registry.SnapshotAndReset())
//
// Converters are stateless; one instance may serve concurrent callers as
// long as every call gets its own snapshot instances.
package export
