package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cleanup subsystem metrics
var (
	// CleanupDuration tracks how long plan+execute cycles take
	CleanupDuration prometheus.Histogram

	// RunsTotal counts runs by mode and outcome (success, partial, failed, dry_run, cancelled)
	RunsTotal *prometheus.CounterVec

	// BytesFreedTotal tracks total bytes freed across all cleanups
	BytesFreedTotal prometheus.Counter

	// ItemsDeletedTotal counts deleted items by type (file, dir)
	ItemsDeletedTotal *prometheus.CounterVec

	// ItemsFailedTotal counts items that could not be deleted, by type
	ItemsFailedTotal *prometheus.CounterVec

	// ItemsSkippedTotal counts scanned entries rejected by the planner, by reason
	ItemsSkippedTotal *prometheus.CounterVec

	// PlannedItems holds the size of the most recent plan, by type
	PlannedItems *prometheus.GaugeVec

	// DeletedFileSize is the size distribution of deleted files
	DeletedFileSize prometheus.Histogram

	// CleanupLastRunTimestamp records Unix timestamp of last cleanup
	CleanupLastRunTimestamp prometheus.Gauge

	// CleanupLastMode tracks the last cleanup mode used (STANDARD, EMERGENCY)
	CleanupLastMode *prometheus.GaugeVec

	// NotificationsTotal counts report notifications by channel and result (sent, failed)
	NotificationsTotal *prometheus.CounterVec
)

// initCleanupMetrics initializes all cleanup subsystem metrics
func initCleanupMetrics() {
	CleanupDuration = newHistogram(
		"cleanup_duration_seconds",
		"Duration of cleanup cycles in seconds.",
		DurationBuckets,
	)

	RunsTotal = newCounterVec(
		"runs_total",
		"Total number of cleanup runs by mode and outcome.",
		"mode", "outcome",
	)

	BytesFreedTotal = newCounter(
		"bytes_freed_total",
		"Total bytes freed by deleted files.",
	)

	ItemsDeletedTotal = newCounterVec(
		"items_deleted_total",
		"Total number of items deleted.",
		"type",
	)

	ItemsFailedTotal = newCounterVec(
		"items_failed_total",
		"Total number of items that could not be deleted.",
		"type",
	)

	ItemsSkippedTotal = newCounterVec(
		"items_skipped_total",
		"Total number of scanned entries rejected by the planner.",
		"reason",
	)

	PlannedItems = newGaugeVec(
		"planned_items",
		"Number of items in the most recent plan.",
		"type",
	)

	DeletedFileSize = newHistogram(
		"deleted_file_size_bytes",
		"Size distribution of deleted files.",
		BytesBuckets,
	)

	CleanupLastRunTimestamp = newGauge(
		"cleanup_last_run_timestamp",
		"Timestamp of the last cleanup run (Unix epoch seconds).",
	)

	CleanupLastMode = newGaugeVec(
		"cleanup_last_mode",
		"Last cleanup mode used (1 on the active label).",
		"mode",
	)

	NotificationsTotal = newCounterVec(
		"notifications_total",
		"Total number of report notifications by channel and result.",
		"channel", "result",
	)
}

// registerCleanupMetrics registers all cleanup metrics with Prometheus
func registerCleanupMetrics() {
	prometheus.MustRegister(CleanupDuration)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(ItemsDeletedTotal)
	prometheus.MustRegister(ItemsFailedTotal)
	prometheus.MustRegister(ItemsSkippedTotal)
	prometheus.MustRegister(PlannedItems)
	prometheus.MustRegister(DeletedFileSize)
	prometheus.MustRegister(CleanupLastRunTimestamp)
	prometheus.MustRegister(CleanupLastMode)
	prometheus.MustRegister(NotificationsTotal)
}

// SetCleanupMode resets all mode gauges to 0, then sets the active mode to 1
func SetCleanupMode(mode string) {
	modeMutex.Lock()
	defer modeMutex.Unlock()

	CleanupLastMode.Reset()
	CleanupLastMode.WithLabelValues(mode).Set(1)
}

// RecordCleanupRun stamps the run time and counts it under mode and outcome.
func RecordCleanupRun(mode, outcome string, took time.Duration) {
	CleanupLastRunTimestamp.Set(float64(time.Now().Unix()))
	CleanupDuration.Observe(took.Seconds())
	RunsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordPlan publishes the item counts of a freshly built plan.
func RecordPlan(files, dirs int) {
	PlannedItems.WithLabelValues("file").Set(float64(files))
	PlannedItems.WithLabelValues("dir").Set(float64(dirs))
}

// RecordSkip counts an entry the planner rejected.
func RecordSkip(reason string) {
	ItemsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordDeletion counts a deleted item; files also add their size.
func RecordDeletion(itemType string, bytes int64) {
	ItemsDeletedTotal.WithLabelValues(itemType).Inc()
	if itemType == "file" {
		BytesFreedTotal.Add(float64(bytes))
		DeletedFileSize.Observe(float64(bytes))
	}
}

// RecordFailure counts an item that could not be deleted.
func RecordFailure(itemType string) {
	ItemsFailedTotal.WithLabelValues(itemType).Inc()
}

// RecordNotification counts one delivery attempt on a channel.
func RecordNotification(channel string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	NotificationsTotal.WithLabelValues(channel, result).Inc()
}
