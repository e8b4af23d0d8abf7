// Package bigquery defines the metric vocabulary of the BigQuery write
// sink: the recognized namespace, the packed metric names the sink emits,
// and the parser that turns them back into structured names for export.
package bigquery

import (
	"time"

	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/metrics/naming"
)

// Namespace is the metric namespace owned by the BigQuery sink. The
// converter translates counters of this namespace only.
const Namespace = "bigquery"

// Metric base names.
const (
	metricRPCRequests   = "rpc_requests"
	metricRPCLatency    = "rpc_latency"
	metricAppendedRows  = "appended_rows"
	metricThrottledTime = "throttled_time"
)

// Label keys.
const (
	labelMethod    = "rpc_method"
	labelStatus    = "rpc_status"
	labelRowStatus = "row_status"
	labelTableID   = "table_id"
)

// latencyLayout covers [1ms, ~2.2min) in sqrt(2) steps; sub-millisecond
// calls surface as bottom outliers.
var latencyLayout = metrics.ExponentialBuckets{Scale: 1, Count: 34}

// Method identifies the sink RPC being instrumented.
type Method string

// RPC methods of the BigQuery write path.
const (
	MethodAppendRows          Method = "AppendRows"
	MethodFlushRows           Method = "FlushRows"
	MethodFinalizeWriteStream Method = "FinalizeWriteStream"
)

// RowStatus classifies the outcome of appended rows.
type RowStatus string

// Row statuses.
const (
	RowStatusSuccessful RowStatus = "SUCCESSFUL"
	RowStatusRetried    RowStatus = "RETRIED"
	RowStatusFailed     RowStatus = "FAILED"
)

// Parser decodes packed metric names owned by the bigquery namespace. It
// implements the export.NameParser capability.
type Parser struct{}

// Parse implements the name-parsing capability. Names outside the bigquery
// namespace are not owned by this parser and report ok=false.
func (Parser) Parse(namespace, name string) (naming.ParsedName, bool) {
	if namespace != Namespace {
		return naming.ParsedName{}, false
	}
	return naming.Parse(name)
}

// Sink records BigQuery write-path metrics into a step-scoped registry
// using the packed-name vocabulary above. All methods are safe for
// concurrent use and never fail; samples that cannot be recorded are
// dropped.
type Sink struct {
	reg *metrics.Registry
}

// New creates a sink backed by the given registry.
func New(reg *metrics.Registry) *Sink {
	return &Sink{reg: reg}
}

// RPCRequest counts one RPC with its method and terminal status.
func (s *Sink) RPCRequest(method Method, status string) {
	name := naming.NewBuilder(metricRPCRequests).
		Label(labelMethod, string(method)).
		Label(labelStatus, status).
		Build()
	s.reg.Counter(metrics.NewName(Namespace, name)).Inc()
}

// RPCLatency records one RPC round-trip duration in milliseconds.
func (s *Sink) RPCLatency(method Method, d time.Duration) {
	name := naming.NewBuilder(metricRPCLatency).
		Label(labelMethod, string(method)).
		Build()
	h, err := s.reg.Histogram(metrics.NewName(Namespace, name), latencyLayout)
	if err != nil {
		return
	}
	h.Record(float64(d) / float64(time.Millisecond))
}

// RowsAppended counts rows that reached a terminal append status.
func (s *Sink) RowsAppended(status RowStatus, tableID string, n int64) {
	name := naming.NewBuilder(metricAppendedRows).
		Label(labelRowStatus, string(status)).
		Label(labelTableID, tableID).
		Build()
	s.reg.Counter(metrics.NewName(Namespace, name)).Add(n)
}

// ThrottledTime accumulates time spent throttled by the service, in
// milliseconds.
func (s *Sink) ThrottledTime(method Method, d time.Duration) {
	name := naming.NewBuilder(metricThrottledTime).
		Label(labelMethod, string(method)).
		Build()
	s.reg.Counter(metrics.NewName(Namespace, name)).Add(d.Milliseconds())
}
