package export_test

import (
	"encoding/json"
	"fmt"

	"github.com/metrelay/metrelay/pkg/export"
	"github.com/metrelay/metrelay/pkg/metrics"
	"github.com/metrelay/metrelay/pkg/metrics/naming"
)

func ExampleConverter_Convert() {
	parser := export.ParserFunc(func(namespace, name string) (naming.ParsedName, bool) {
		return naming.Parse(name)
	})
	conv := export.NewConverter("bigquery", parser)

	counters := map[metrics.Name]int64{
		metrics.NewName("bigquery", "appended_rows"): 5,
	}

	batches := conv.Convert("WriteToBigQuery/Flush", counters, nil)

	out, _ := json.Marshal(batches[0])
	fmt.Println(string(out))
	// Output: {"originalStep":"WriteToBigQuery/Flush","metricsNamespace":"bigquery","metricValues":[{"metric":"appended_rows","valueInt64":5}]}
}

func ExampleConverter_ConvertSnapshot() {
	reg := metrics.NewRegistry("WriteToBigQuery/Flush")
	reg.Counter(metrics.NewName("bigquery", "appended_rows")).Add(128)

	parser := export.ParserFunc(func(namespace, name string) (naming.ParsedName, bool) {
		return naming.Parse(name)
	})
	conv := export.NewConverter("bigquery", parser)

	batches := conv.ConvertSnapshot(reg.SnapshotAndReset())
	fmt.Println(len(batches), batches[0].MetricsNamespace, *batches[0].MetricValues[0].ValueInt64)
	// Output: 1 bigquery 128
}
