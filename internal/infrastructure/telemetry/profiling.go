package telemetry

import (
	"context"
	"sort"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelMethod     = "method"
	ProfilingLabelRoute      = "route"
	ProfilingLabelController = "controller"
	ProfilingLabelAuth       = "auth"
	ProfilingLabelJob        = "job"
)

// MaxLabelValueLength caps label values.
const MaxLabelValueLength = 128

// highCardinalityLabels never reach Pyroscope; one series per account or
// request would blow up profile storage.
var highCardinalityLabels = map[string]bool{
	"account_id":   true,
	"request_id":   true,
	"ingestion_id": true,
	"stash_id":     true,
	"trace_id":     true,
	"span_id":      true,
}

// WithProfilingLabels runs fn with pprof labels attached to its goroutine.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key/value pairs, dropping empty,
// high-cardinality and oversized entries.
func labelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		v := labels[k]
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
