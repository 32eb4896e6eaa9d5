package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"xcleanup/internal/disk"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks total errors encountered by the daemon
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks current free space percentage per checked path
	FreeSpacePercent *prometheus.GaugeVec

	// PathFreeBytes tracks free space available on the filesystem containing the path
	PathFreeBytes *prometheus.GaugeVec

	// PathTotalBytes tracks total capacity of the filesystem containing the path
	PathTotalBytes *prometheus.GaugeVec

	// EmergencyActive is 1 while the last decision was emergency mode
	EmergencyActive prometheus.Gauge

	// ConfigReloadsTotal counts config reload attempts by result
	ConfigReloadsTotal *prometheus.CounterVec

	// SkippedTicksTotal counts scheduled ticks dropped because a run was in progress
	SkippedTicksTotal prometheus.Counter

	// HistoryRowsPrunedTotal counts deletion history rows removed by retention
	HistoryRowsPrunedTotal prometheus.Counter
)

// initDaemonMetrics initializes all daemon subsystem metrics
func initDaemonMetrics() {
	ErrorsTotal = newCounter(
		"daemon_errors_total",
		"Total number of errors encountered by xcleanup.",
	)

	FreeSpacePercent = newGaugeVec(
		"free_space_percent",
		"Current free space percentage for the checked path.",
		"path",
	)

	PathFreeBytes = newGaugeVec(
		"free_bytes",
		"Free space available on the filesystem containing this path.",
		"path",
	)

	PathTotalBytes = newGaugeVec(
		"total_bytes",
		"Total capacity of the filesystem containing this path.",
		"path",
	)

	EmergencyActive = newGauge(
		"emergency_active",
		"Whether the most recent run was in emergency mode (1) or not (0).",
	)

	ConfigReloadsTotal = newCounterVec(
		"config_reloads_total",
		"Total number of configuration reloads by result.",
		"result",
	)

	SkippedTicksTotal = newCounter(
		"daemon_skipped_ticks_total",
		"Scheduled runs skipped because the previous run was still in progress.",
	)

	HistoryRowsPrunedTotal = newCounter(
		"history_rows_pruned_total",
		"Deletion history rows removed by retention.",
	)
}

// registerDaemonMetrics registers all daemon metrics with Prometheus
func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(PathFreeBytes)
	prometheus.MustRegister(PathTotalBytes)
	prometheus.MustRegister(EmergencyActive)
	prometheus.MustRegister(ConfigReloadsTotal)
	prometheus.MustRegister(SkippedTicksTotal)
	prometheus.MustRegister(HistoryRowsPrunedTotal)
}

// UpdateDiskMetrics publishes a usage snapshot for path.
func UpdateDiskMetrics(path string, u disk.Usage) {
	FreeSpacePercent.WithLabelValues(path).Set(u.FreePercent())
	PathFreeBytes.WithLabelValues(path).Set(float64(u.FreeBytes))
	PathTotalBytes.WithLabelValues(path).Set(float64(u.TotalBytes))
}

// SetEmergency records the emergency decision of the current run.
func SetEmergency(active bool) {
	if active {
		EmergencyActive.Set(1)
		return
	}
	EmergencyActive.Set(0)
}
