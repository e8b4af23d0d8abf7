package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/metrelay/metrelay/pkg/metrics"
)

func gatherAll(t *testing.T, c *Collector) []*dto.MetricFamily {
	t.Helper()

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Failed to register collector: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	return families
}

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()

	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("Metric family %s not found", name)
	return nil
}

func labelMap(m *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, pair := range m.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	return labels
}

func TestCollector_Counter(t *testing.T) {
	reg := metrics.NewRegistry("WriteToBigQuery/Flush")
	reg.Counter(metrics.NewName("bigquery", "rpc_requests*rpc_method:AppendRows;rpc_status:OK;")).Add(7)

	families := gatherAll(t, NewCollector(reg))
	family := findFamily(t, families, "bigquery_rpc_requests")

	if family.GetType() != dto.MetricType_COUNTER {
		t.Errorf("Expected counter type, got %v", family.GetType())
	}
	if len(family.GetMetric()) != 1 {
		t.Fatalf("Expected 1 metric, got %d", len(family.GetMetric()))
	}

	m := family.GetMetric()[0]
	if got := m.GetCounter().GetValue(); got != 7 {
		t.Errorf("Expected counter value 7, got %g", got)
	}

	labels := labelMap(m)
	if labels["rpc_method"] != "AppendRows" {
		t.Errorf("Expected rpc_method=AppendRows, got %q", labels["rpc_method"])
	}
	if labels["rpc_status"] != "OK" {
		t.Errorf("Expected rpc_status=OK, got %q", labels["rpc_status"])
	}
	if labels["step"] != "WriteToBigQuery/Flush" {
		t.Errorf("Expected step label, got %q", labels["step"])
	}
}

func TestCollector_Histogram(t *testing.T) {
	reg := metrics.NewRegistry("WriteToBigQuery/Flush")
	h, err := reg.Histogram(metrics.NewName("bigquery", "rpc_latency*"), metrics.LinearBuckets{Start: 0, Width: 10, Count: 3})
	if err != nil {
		t.Fatalf("Failed to create histogram: %v", err)
	}
	h.Record(5)
	h.Record(15)
	h.Record(-3)
	h.Record(100)

	families := gatherAll(t, NewCollector(reg))
	family := findFamily(t, families, "bigquery_rpc_latency")

	if family.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("Expected histogram type, got %v", family.GetType())
	}

	hist := family.GetMetric()[0].GetHistogram()
	if got := hist.GetSampleCount(); got != 4 {
		t.Errorf("Expected sample count 4, got %d", got)
	}
	if got := hist.GetSampleSum(); got != 117 {
		t.Errorf("Expected sample sum 117, got %g", got)
	}

	buckets := hist.GetBucket()
	if len(buckets) != 3 {
		t.Fatalf("Expected 3 buckets, got %d", len(buckets))
	}

	// Observations below the range fold into the first bucket; the top
	// outlier is visible only in the sample count.
	wantBounds := []float64{10, 20, 30}
	wantCumulative := []uint64{2, 3, 3}
	for i, bucket := range buckets {
		if bucket.GetUpperBound() != wantBounds[i] {
			t.Errorf("Bucket %d: expected upper bound %g, got %g", i, wantBounds[i], bucket.GetUpperBound())
		}
		if bucket.GetCumulativeCount() != wantCumulative[i] {
			t.Errorf("Bucket %d: expected cumulative count %d, got %d", i, wantCumulative[i], bucket.GetCumulativeCount())
		}
	}
}

func TestCollector_ExponentialBounds(t *testing.T) {
	reg := metrics.NewRegistry("step")
	h, err := reg.Histogram(metrics.NewName("bigquery", "batch_bytes*"), metrics.ExponentialBuckets{Scale: 0, Count: 4})
	if err != nil {
		t.Fatalf("Failed to create histogram: %v", err)
	}
	h.Record(0.5)
	h.Record(3)

	families := gatherAll(t, NewCollector(reg))
	family := findFamily(t, families, "bigquery_batch_bytes")

	buckets := family.GetMetric()[0].GetHistogram().GetBucket()
	wantBounds := []float64{2, 4, 8, 16}
	if len(buckets) != len(wantBounds) {
		t.Fatalf("Expected %d buckets, got %d", len(wantBounds), len(buckets))
	}
	for i, bucket := range buckets {
		if bucket.GetUpperBound() != wantBounds[i] {
			t.Errorf("Bucket %d: expected upper bound %g, got %g", i, wantBounds[i], bucket.GetUpperBound())
		}
	}
	if got := buckets[0].GetCumulativeCount(); got != 1 {
		t.Errorf("Expected first bucket cumulative count 1, got %d", got)
	}
	if got := buckets[1].GetCumulativeCount(); got != 2 {
		t.Errorf("Expected second bucket cumulative count 2, got %d", got)
	}
}

func TestCollector_UnparseableNameExportedWhole(t *testing.T) {
	reg := metrics.NewRegistry("step")
	reg.Counter(metrics.NewName("bigquery", "bad*name*extra")).Add(3)

	families := gatherAll(t, NewCollector(reg))
	family := findFamily(t, families, "bigquery_bad_name_extra")

	m := family.GetMetric()[0]
	if got := m.GetCounter().GetValue(); got != 3 {
		t.Errorf("Expected counter value 3, got %g", got)
	}

	labels := labelMap(m)
	if len(labels) != 1 || labels["step"] != "step" {
		t.Errorf("Expected only the step label, got %v", labels)
	}
}

func TestCollector_MultipleRegistries(t *testing.T) {
	regA := metrics.NewRegistry("StepA")
	regA.Counter(metrics.NewName("bigquery", "appended_rows*")).Add(10)
	regB := metrics.NewRegistry("StepB")
	regB.Counter(metrics.NewName("bigquery", "appended_rows*")).Add(20)

	families := gatherAll(t, NewCollector(regA, regB))
	family := findFamily(t, families, "bigquery_appended_rows")

	if len(family.GetMetric()) != 2 {
		t.Fatalf("Expected 2 metrics, got %d", len(family.GetMetric()))
	}

	byStep := make(map[string]float64)
	for _, m := range family.GetMetric() {
		byStep[labelMap(m)["step"]] = m.GetCounter().GetValue()
	}
	if byStep["StepA"] != 10 || byStep["StepB"] != 20 {
		t.Errorf("Unexpected per-step values: %v", byStep)
	}
}

func TestCollector_ScrapeKeepsDeltas(t *testing.T) {
	reg := metrics.NewRegistry("step")
	reg.Counter(metrics.NewName("bigquery", "appended_rows*")).Add(5)

	gatherAll(t, NewCollector(reg))

	// A scrape must not consume the delta destined for the reporting loop.
	snap := reg.SnapshotAndReset()
	if got := snap.Counters[metrics.NewName("bigquery", "appended_rows*")]; got != 5 {
		t.Errorf("Expected counter delta 5 after scrape, got %d", got)
	}
}

type fixedLayout struct{}

func (fixedLayout) NumBuckets() int { return 1 }
func (fixedLayout) RangeFrom() float64 { return 0 }
func (fixedLayout) RangeTo() float64 { return 1 }
func (fixedLayout) BucketIndex(v float64) int { return 0 }
func (fixedLayout) String() string { return "fixed" }

func TestCollector_SkipsUnsupportedLayout(t *testing.T) {
	reg := metrics.NewRegistry("step")
	h, err := reg.Histogram(metrics.NewName("bigquery", "odd*"), fixedLayout{})
	if err != nil {
		t.Fatalf("Failed to create histogram: %v", err)
	}
	h.Record(0.5)

	families := gatherAll(t, NewCollector(reg))
	for _, family := range families {
		if family.GetName() == "bigquery_odd" {
			t.Fatal("Expected unsupported layout to be skipped")
		}
	}
}

func TestCollector_Gather(t *testing.T) {
	reg := metrics.NewRegistry("step")
	reg.Counter(metrics.NewName("bigquery", "throttled_time*")).Add(250)

	families, err := NewCollector(reg).Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}

	family := findFamily(t, families, "bigquery_throttled_time")
	if got := family.GetMetric()[0].GetCounter().GetValue(); got != 250 {
		t.Errorf("Expected counter value 250, got %g", got)
	}
}
