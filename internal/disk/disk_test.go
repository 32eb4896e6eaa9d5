package disk

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFreePercent(t *testing.T) {
	tests := []struct {
		name  string
		usage Usage
		want  float64
	}{
		{"half free", Usage{TotalBytes: 1000, FreeBytes: 500}, 50},
		{"full", Usage{TotalBytes: 1000, FreeBytes: 0}, 0},
		{"zero total", Usage{TotalBytes: 0, FreeBytes: 0}, 0},
		{"empty", Usage{TotalBytes: 200, FreeBytes: 200}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usage.FreePercent(); got != tt.want {
				t.Errorf("FreePercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatfsReader(t *testing.T) {
	u, err := StatfsReader{}.Read(t.TempDir())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if u.TotalBytes == 0 {
		t.Error("expected non-zero total bytes")
	}
	if u.FreeBytes > u.TotalBytes {
		t.Errorf("free %d exceeds total %d", u.FreeBytes, u.TotalBytes)
	}
}

func TestStatfsReaderMissingPath(t *testing.T) {
	_, err := StatfsReader{}.Read(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestStaticReader(t *testing.T) {
	want := Usage{TotalBytes: 10, FreeBytes: 3}
	got, err := StaticReader(want).Read("/anything")
	if err != nil || got != want {
		t.Fatalf("got %+v, %v; want %+v", got, err, want)
	}
}

func TestIsNFSStaleLocalPath(t *testing.T) {
	if IsNFSStale(t.TempDir(), time.Second) {
		t.Error("local temp dir reported as stale")
	}
	if IsNFSStale(filepath.Join(t.TempDir(), "missing"), time.Second) {
		t.Error("missing path is not a stale mount")
	}
}
