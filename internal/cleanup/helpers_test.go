package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xcleanup/internal/config"
	"xcleanup/internal/metrics"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

// writeAged creates a file with the given content and modification age.
func writeAged(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	setAge(t, path, age)
}

func mkdirAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	setAge(t, path, age)
}

func setAge(t *testing.T, path string, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(-age)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func baseConfig(root string) *config.Config {
	return &config.Config{
		Paths: config.PathsCfg{
			AllowedPaths: []string{root},
		},
		Cleanup: config.CleanupCfg{
			MinAgeSeconds:          3600,
			DeleteFiles:            true,
			DeleteEmptyDirectories: true,
		},
	}
}

func itemPaths(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

// recordingMetrics captures metric calls for assertions.
type recordingMetrics struct {
	mu      sync.Mutex
	skipped map[string]int
	deleted int
	failed  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{skipped: make(map[string]int)}
}

func (m *recordingMetrics) Skipped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[reason]++
}

func (m *recordingMetrics) Deleted(Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
}

func (m *recordingMetrics) Failed(Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

// recordingAudit captures audit events.
type recordingAudit struct {
	events []AuditEvent
}

func (a *recordingAudit) Record(ev AuditEvent) {
	a.events = append(a.events, ev)
}
