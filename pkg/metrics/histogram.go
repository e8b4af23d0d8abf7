package metrics

import (
	"math"
	"sync"
)

// Histogram accumulates float64 observations into the buckets of a fixed
// BucketType. Observations below the layout's range are tracked as bottom
// outliers and observations at or above it as top outliers, each with a
// running count and sum so their mean can be reported. All methods are safe
// for concurrent use.
type Histogram struct {
	mu         sync.Mutex
	bucketType BucketType
	counts     []int64

	total       int64   // in-range plus outlier observations
	sum         float64 // sum of all observations, outliers included
	topCount    int64
	topSum      float64
	bottomCount int64
	bottomSum   float64
}

// NewHistogram creates a histogram with the given bucket layout.
func NewHistogram(bucketType BucketType) (*Histogram, error) {
	if bucketType == nil {
		return nil, &MetricError{Op: "new histogram", Err: ErrNilBucketType}
	}
	if bucketType.NumBuckets() <= 0 {
		return nil, &MetricError{Op: "new histogram", Err: ErrInvalidBuckets}
	}
	return &Histogram{
		bucketType: bucketType,
		counts:     make([]int64, bucketType.NumBuckets()),
	}, nil
}

// Record adds a single observation. NaN observations are dropped.
func (h *Histogram) Record(value float64) {
	h.RecordN(value, 1)
}

// RecordN adds an observation n times. Calls with n <= 0 are no-ops.
func (h *Histogram) RecordN(value float64, n int64) {
	if n <= 0 || math.IsNaN(value) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case value >= h.bucketType.RangeTo():
		h.topCount += n
		h.topSum += value * float64(n)
	case value < h.bucketType.RangeFrom():
		h.bottomCount += n
		h.bottomSum += value * float64(n)
	default:
		h.counts[h.bucketType.BucketIndex(value)] += n
	}
	h.total += n
	h.sum += value * float64(n)
}

// BucketType returns the histogram's bucket layout.
func (h *Histogram) BucketType() BucketType {
	return h.bucketType
}

// TotalCount returns the number of recorded observations, outliers included.
func (h *Histogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Sum returns the sum of all recorded observations, outliers included.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Count returns the observation count of bucket i, or 0 when i is out of
// range.
func (h *Histogram) Count(i int) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.counts) {
		return 0
	}
	return h.counts[i]
}

// TopCount returns the number of observations at or above the range.
func (h *Histogram) TopCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.topCount
}

// TopMean returns the arithmetic mean of top outliers, 0 when there are none.
func (h *Histogram) TopMean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topCount == 0 {
		return 0
	}
	return h.topSum / float64(h.topCount)
}

// BottomCount returns the number of observations below the range.
func (h *Histogram) BottomCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bottomCount
}

// BottomMean returns the arithmetic mean of bottom outliers, 0 when there
// are none.
func (h *Histogram) BottomMean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bottomCount == 0 {
		return 0
	}
	return h.bottomSum / float64(h.bottomCount)
}

// Clear resets all bucket and outlier state. The bucket layout is kept.
func (h *Histogram) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

func (h *Histogram) clearLocked() {
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.total = 0
	h.sum = 0
	h.topCount = 0
	h.topSum = 0
	h.bottomCount = 0
	h.bottomSum = 0
}

// Snapshot returns an immutable copy of the current state.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// SnapshotAndClear returns an immutable copy of the current state and resets
// the histogram. Reporters use it to extract deltas between reporting
// intervals.
func (h *Histogram) SnapshotAndClear() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := h.snapshotLocked()
	h.clearLocked()
	return snap
}

func (h *Histogram) snapshotLocked() HistogramSnapshot {
	counts := make([]int64, len(h.counts))
	copy(counts, h.counts)
	snap := HistogramSnapshot{
		bucketType:  h.bucketType,
		counts:      counts,
		total:       h.total,
		sum:         h.sum,
		topCount:    h.topCount,
		bottomCount: h.bottomCount,
	}
	if h.topCount > 0 {
		snap.topMean = h.topSum / float64(h.topCount)
	}
	if h.bottomCount > 0 {
		snap.bottomMean = h.bottomSum / float64(h.bottomCount)
	}
	return snap
}

// HistogramSnapshot is a point-in-time copy of a Histogram. It is immutable
// and safe to share across goroutines.
type HistogramSnapshot struct {
	bucketType  BucketType
	counts      []int64
	total       int64
	sum         float64
	topCount    int64
	topMean     float64
	bottomCount int64
	bottomMean  float64
}

// NewHistogramSnapshot assembles a snapshot from raw components. Bridges
// that ingest externally aggregated histograms use it; counts is copied.
func NewHistogramSnapshot(bucketType BucketType, counts []int64, sum float64, topCount int64, topMean float64, bottomCount int64, bottomMean float64) HistogramSnapshot {
	c := make([]int64, len(counts))
	copy(c, counts)
	total := topCount + bottomCount
	for _, n := range c {
		total += n
	}
	return HistogramSnapshot{
		bucketType:  bucketType,
		counts:      c,
		total:       total,
		sum:         sum,
		topCount:    topCount,
		topMean:     topMean,
		bottomCount: bottomCount,
		bottomMean:  bottomMean,
	}
}

// BucketType returns the snapshot's bucket layout.
func (s HistogramSnapshot) BucketType() BucketType { return s.bucketType }

// TotalCount returns the number of observations, outliers included.
func (s HistogramSnapshot) TotalCount() int64 { return s.total }

// Sum returns the sum of all observations, outliers included.
func (s HistogramSnapshot) Sum() float64 { return s.sum }

// NumBuckets returns the number of in-range buckets.
func (s HistogramSnapshot) NumBuckets() int { return len(s.counts) }

// Count returns the observation count of bucket i, or 0 when i is out of
// range.
func (s HistogramSnapshot) Count(i int) int64 {
	if i < 0 || i >= len(s.counts) {
		return 0
	}
	return s.counts[i]
}

// Counts returns a copy of all bucket counts.
func (s HistogramSnapshot) Counts() []int64 {
	counts := make([]int64, len(s.counts))
	copy(counts, s.counts)
	return counts
}

// TopCount returns the number of observations at or above the range.
func (s HistogramSnapshot) TopCount() int64 { return s.topCount }

// TopMean returns the mean of top outliers, 0 when there are none.
func (s HistogramSnapshot) TopMean() float64 { return s.topMean }

// BottomCount returns the number of observations below the range.
func (s HistogramSnapshot) BottomCount() int64 { return s.bottomCount }

// BottomMean returns the mean of bottom outliers, 0 when there are none.
func (s HistogramSnapshot) BottomMean() float64 { return s.bottomMean }
