// Package state keeps the durable "recently deleted" ledger that stops the
// same path from being deleted again inside a cooldown window.
//
// The ledger is a JSON object mapping absolute paths to the Unix second at
// which they were last deleted. Writes take an exclusive lock on a sibling
// "<state>.lock" file and replace the ledger through a same-directory temp
// file and rename, so readers see either the old or the new ledger and never
// a partial one.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrStorage marks every failure to read, lock or write the ledger.
var ErrStorage = errors.New("cleanup state storage error")

// Store is the in-memory view of one ledger file.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]int64
	now     func() time.Time
}

// Open loads the ledger at path. A missing file is an empty ledger; a file
// that cannot be read or parsed is a storage error.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: state file path is empty", ErrStorage)
	}

	entries, err := readLedger(path)
	if err != nil {
		return nil, err
	}

	return &Store{
		path:    path,
		entries: entries,
		now:     time.Now,
	}, nil
}

// SetClock replaces the time source used for stamping and cooldown checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of recorded paths.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the ledger.
func (s *Store) Entries() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries)
}

// WasDeletedRecently reports whether path was recorded no more than window
// ago. Callers decide whether a cooldown applies at all.
func (s *Store) WasDeletedRecently(path string, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.entries[path]
	if !ok {
		return false
	}
	return s.now().Unix()-ts <= int64(window/time.Second)
}

// RecordDeleted stamps every path with the current time and persists the
// whole ledger. Entries written by other processes since Open are kept.
func (s *Store) RecordDeleted(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now().Unix()
	for _, p := range paths {
		s.entries[p] = stamp
	}

	return s.persist()
}

func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create state directory %s: %v", ErrStorage, dir, err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: lock %s: %v", ErrStorage, s.path, err)
	}
	defer lock.Unlock()

	// merge under the lock so concurrent runs do not drop each other's stamps
	onDisk, err := readLedger(s.path)
	if err != nil {
		return err
	}
	for p, ts := range onDisk {
		if cur, ok := s.entries[p]; !ok || ts > cur {
			s.entries[p] = ts
		}
	}

	data, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode ledger: %v", ErrStorage, err)
	}

	return atomicWrite(s.path, data)
}

func readLedger(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]int64), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, path, err)
	}

	entries := make(map[string]int64)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStorage, path, err)
	}
	return entries, nil
}

// atomicWrite replaces path with data via a synced temp file in the same
// directory.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp file: %v", ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp file: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrStorage, err)
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		return fmt.Errorf("%w: chmod temp file: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into %s: %v", ErrStorage, path, err)
	}

	committed = true
	return nil
}
