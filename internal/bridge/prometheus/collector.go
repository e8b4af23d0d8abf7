// Package prometheus exposes internal metric registries to the Prometheus
// ecosystem.
//
// A Collector presents every counter and histogram held by the wrapped
// registries as Prometheus series: packed metric names are decomposed into
// a metric name and label pairs, the owning step becomes a "step" label,
// and bucket layouts become cumulative Prometheus buckets with computed
// upper bounds. Scraping reads non-destructive snapshots, so it never
// disturbs the deltas extracted by the reporting loop.
//
// Outlier means have no Prometheus representation. Observations below a
// layout's range fold into the first bucket and observations above it are
// visible only in the sample count.
package prometheus

import (
	"math"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/metrics/naming"
)

const (
	counterHelp   = "Counter relayed from the internal metrics registry."
	histogramHelp = "Histogram relayed from the internal metrics registry."
)

// Collector implements prometheus.Collector over one or more internal
// registries.
type Collector struct {
	regs []*metrics.Registry
}

// NewCollector creates a collector exposing the given registries.
func NewCollector(regs ...*metrics.Registry) *Collector {
	return &Collector{regs: regs}
}

// Describe sends no descriptors, making this an unchecked collector. The
// metric set is dynamic: registries grow as instrumented code runs.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect snapshots every registry and emits one Prometheus metric per
// counter and histogram. Metrics whose decomposed names are rejected by
// Prometheus are dropped.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, reg := range c.regs {
		snap := reg.Snapshot()

		for name, value := range snap.Counters {
			m, err := counterMetric(snap.Step, name, value)
			if err != nil {
				continue
			}
			ch <- m
		}

		for name, h := range snap.Histograms {
			m, err := histogramMetric(snap.Step, name, h)
			if err != nil {
				continue
			}
			ch <- m
		}
	}
}

// Gather renders the collector's current state as Prometheus metric
// families. It makes the collector usable wherever a prometheus.Gatherer
// is expected without registering it globally.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return reg.Gather()
}

// counterMetric converts a counter entry to a Prometheus counter
func counterMetric(step string, name metrics.Name, value int64) (prometheus.Metric, error) {
	fqName, labelKeys, labelValues := decompose(name)
	desc := prometheus.NewDesc(fqName, counterHelp, labelKeys, prometheus.Labels{"step": step})
	return prometheus.NewConstMetric(desc, prometheus.CounterValue, float64(value), labelValues...)
}

// histogramMetric converts a histogram snapshot to a Prometheus histogram
// with cumulative bucket counts
func histogramMetric(step string, name metrics.Name, snap metrics.HistogramSnapshot) (prometheus.Metric, error) {
	bounds, ok := upperBounds(snap.BucketType())
	if !ok {
		return nil, &metrics.MetricError{Op: "prometheus bridge", Name: name, Err: metrics.ErrInvalidBuckets}
	}

	buckets := make(map[float64]uint64, len(bounds))
	cumulative := uint64(snap.BottomCount())
	for i, bound := range bounds {
		cumulative += uint64(snap.Count(i))
		buckets[bound] = cumulative
	}

	fqName, labelKeys, labelValues := decompose(name)
	desc := prometheus.NewDesc(fqName, histogramHelp, labelKeys, prometheus.Labels{"step": step})
	return prometheus.NewConstHistogram(desc, uint64(snap.TotalCount()), snap.Sum(), buckets, labelValues...)
}

// upperBounds computes the inclusive upper bounds of every bucket in the
// layout. Unknown layouts report false.
func upperBounds(bucketType metrics.BucketType) ([]float64, bool) {
	switch layout := bucketType.(type) {
	case metrics.LinearBuckets:
		bounds := make([]float64, layout.Count)
		for i := range bounds {
			bounds[i] = layout.Start + layout.Width*float64(i+1)
		}
		return bounds, true
	case metrics.ExponentialBuckets:
		bounds := make([]float64, layout.Count)
		for i := range bounds {
			bounds[i] = math.Pow(layout.Base(), float64(i+1))
		}
		return bounds, true
	default:
		return nil, false
	}
}

// decompose splits a packed metric name into a Prometheus metric name and
// sorted label pairs. Names that do not parse are exported whole, without
// labels.
func decompose(name metrics.Name) (fqName string, labelKeys, labelValues []string) {
	parsed, ok := naming.Parse(name.Name)
	if !ok || parsed.Base == "" {
		return sanitize(name.Namespace + "_" + name.Name), nil, nil
	}

	fqName = sanitize(name.Namespace + "_" + parsed.Base)
	if len(parsed.Labels) == 0 {
		return fqName, nil, nil
	}

	labelKeys = make([]string, 0, len(parsed.Labels))
	for key := range parsed.Labels {
		labelKeys = append(labelKeys, key)
	}
	sort.Strings(labelKeys)

	labelValues = make([]string, len(labelKeys))
	for i, key := range labelKeys {
		labelValues[i] = parsed.Labels[key]
	}
	for i, key := range labelKeys {
		labelKeys[i] = sanitize(key)
	}
	return fqName, labelKeys, labelValues
}

// sanitize maps arbitrary name segments onto the Prometheus identifier
// alphabet [a-zA-Z0-9_], replacing anything else with underscores.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
