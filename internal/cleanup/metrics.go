package cleanup

import "xcleanup/internal/metrics"

// Metrics receives per-item counters from the planner and executor.
type Metrics interface {
	Skipped(reason string)
	Deleted(Item)
	Failed(Item)
}

// promMetrics forwards to the process-wide Prometheus collectors.
type promMetrics struct{}

func newPromMetrics() promMetrics {
	metrics.Init()
	return promMetrics{}
}

func (promMetrics) Skipped(reason string) { metrics.RecordSkip(reason) }
func (promMetrics) Deleted(it Item)       { metrics.RecordDeletion(string(it.Type), it.SizeBytes) }
func (promMetrics) Failed(it Item)        { metrics.RecordFailure(string(it.Type)) }
