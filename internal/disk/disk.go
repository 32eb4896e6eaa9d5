package disk

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Usage is a snapshot of a filesystem's capacity.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// FreePercent returns free space as a percentage of total, or 0 when the
// total is unknown.
func (u Usage) FreePercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	return float64(u.FreeBytes) / float64(u.TotalBytes) * 100.0
}

// UsedPercent returns the complement of FreePercent.
func (u Usage) UsedPercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	return 100.0 - u.FreePercent()
}

// Reader reads filesystem usage for the mount holding path.
type Reader interface {
	Read(path string) (Usage, error)
}

// StatfsReader implements Reader with statfs(2).
type StatfsReader struct{}

// Read reports space available to unprivileged users as free.
func (StatfsReader) Read(path string) (Usage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := uint64(stat.Bsize)
	return Usage{
		TotalBytes: stat.Blocks * bsize,
		FreeBytes:  stat.Bavail * bsize,
	}, nil
}

// StaticReader returns a fixed Usage; used for tests and dry simulations.
type StaticReader Usage

func (s StaticReader) Read(string) (Usage, error) {
	return Usage(s), nil
}

// IsNFSStale checks if a path is on a stale NFS mount by attempting a quick stat
// with timeout. Returns true if the operation times out or fails with NFS-specific errors.
func IsNFSStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)

	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return false
		}
		// Common NFS errors: EIO, ESTALE, ENXIO
		return os.IsTimeout(err) ||
			errors.Is(err, syscall.EIO) ||
			errors.Is(err, syscall.ESTALE) ||
			errors.Is(err, syscall.ENXIO)
	case <-time.After(timeout):
		// Operation timed out - likely stale NFS
		return true
	}
}
