package cleanup

import (
	"xcleanup/internal/config"
	"xcleanup/internal/disk"
)

// IsEmergency reports whether usage breaches any configured threshold. A
// disabled emergency policy never escalates.
func IsEmergency(cfg config.EmergencyCfg, usage disk.Usage) bool {
	if !cfg.Enabled {
		return false
	}

	free := usage.FreeBytes
	return usage.FreePercent() < cfg.FreePercentThreshold ||
		belowBytes(free, cfg.FreeBytesThreshold) ||
		belowBytes(free, cfg.FreeBytesCriticalThreshold)
}

func belowBytes(free uint64, threshold int64) bool {
	return threshold > 0 && free < uint64(threshold)
}
