// Package metrics provides the in-process metric model: namespaced metric
// names, monotonic counters, and fixed-layout histograms with outlier
// tracking, grouped into step-scoped registries.
//
// The model is deliberately small. Metrics accumulate raw values during
// execution of a processing step; converting them into an external wire
// representation is the job of the export package, and shipping them is
// the job of the report package.
//
// # Basic Usage
//
// Create a registry per processing step and record into it:
//
//	reg := metrics.NewRegistry("WriteToStorage/Flush")
//
//	rows := reg.Counter(metrics.NewName("bigquery", "appended_rows"))
//	rows.Add(128)
//
//	layout, err := metrics.NewExponentialBuckets(1, 34)
//	if err != nil {
//		log.Fatal(err)
//	}
//	latency, err := reg.Histogram(metrics.NewName("bigquery", "rpc_latency"), layout)
//	if err != nil {
//		log.Fatal(err)
//	}
//	latency.Record(12.7)
//
// # Bucket Layouts
//
// Two layouts are provided. LinearBuckets partitions [Start, Start+Width*Count)
// into Count equal buckets. ExponentialBuckets partitions [0, base^Count)
// with base = 2^(2^-Scale), so Scale 1 yields sqrt(2) growth and Scale -1
// yields factor-4 growth. Observations outside the range are not lost: each
// histogram tracks a count and running mean for values below the range
// (bottom) and at or above it (top).
//
// # Snapshots
//
// Snapshot returns immutable copies that can be read without further
// coordination. SnapshotAndReset additionally zeroes the live metrics,
// which turns periodic snapshots into per-interval deltas:
//
//	snap := reg.SnapshotAndReset()
//	for name, value := range snap.Counters {
//		fmt.Println(name, value)
//	}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Counters are
// lock-free; histograms and registries synchronize internally. Snapshots
// are plain values and may be shared freely.
package metrics
