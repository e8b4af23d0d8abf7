package metrics

import "sync"

// Registry is a step-scoped container of counters and histograms. Metrics
// are created on first use and shared on subsequent lookups. All methods
// are safe for concurrent use.
type Registry struct {
	step string

	mu         sync.RWMutex
	counters   map[Name]*Counter
	histograms map[Name]*Histogram
}

// NewRegistry creates an empty registry for the named processing step.
func NewRegistry(step string) *Registry {
	return &Registry{
		step:       step,
		counters:   make(map[Name]*Counter),
		histograms: make(map[Name]*Histogram),
	}
}

// Step returns the processing step this registry belongs to.
func (r *Registry) Step() string {
	return r.step
}

// Counter returns the counter registered under name, creating it if needed.
func (r *Registry) Counter(name Name) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c = &Counter{}
	r.counters[name] = c
	return c
}

// Histogram returns the histogram registered under name, creating it with
// the given bucket layout if needed. Requesting an existing histogram with
// a different layout fails with a LayoutConflictError.
func (r *Registry) Histogram(name Name, bucketType BucketType) (*Histogram, error) {
	if bucketType == nil {
		return nil, &MetricError{Op: "histogram", Name: name, Err: ErrNilBucketType}
	}

	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		if h.BucketType() != bucketType {
			return nil, &LayoutConflictError{Name: name, Registered: h.BucketType(), Requested: bucketType}
		}
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		if h.BucketType() != bucketType {
			return nil, &LayoutConflictError{Name: name, Registered: h.BucketType(), Requested: bucketType}
		}
		return h, nil
	}
	h, err := NewHistogram(bucketType)
	if err != nil {
		return nil, err
	}
	r.histograms[name] = h
	return h, nil
}

// Snapshot copies the current counter values and histogram states without
// modifying them.
func (r *Registry) Snapshot() StepSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := StepSnapshot{
		Step:       r.step,
		Counters:   make(map[Name]int64, len(r.counters)),
		Histograms: make(map[Name]HistogramSnapshot, len(r.histograms)),
	}
	for name, c := range r.counters {
		snap.Counters[name] = c.Value()
	}
	for name, h := range r.histograms {
		snap.Histograms[name] = h.Snapshot()
	}
	return snap
}

// SnapshotAndReset copies the current state and resets every metric to
// zero, yielding per-interval deltas when called periodically.
func (r *Registry) SnapshotAndReset() StepSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := StepSnapshot{
		Step:       r.step,
		Counters:   make(map[Name]int64, len(r.counters)),
		Histograms: make(map[Name]HistogramSnapshot, len(r.histograms)),
	}
	for name, c := range r.counters {
		snap.Counters[name] = c.Reset()
	}
	for name, h := range r.histograms {
		snap.Histograms[name] = h.SnapshotAndClear()
	}
	return snap
}

// StepSnapshot is a point-in-time copy of one step's metrics. It is the
// input shape of batch conversion.
type StepSnapshot struct {
	Step       string
	Counters   map[Name]int64
	Histograms map[Name]HistogramSnapshot
}
