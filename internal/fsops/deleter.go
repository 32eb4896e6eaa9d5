package fsops

import (
	"io"
	"os"
)

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	Remove(path string) error
}

// IsEmptyDir reports whether dir has no entries. A directory that cannot be
// opened or read counts as non-empty.
func IsEmptyDir(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	return err == io.EOF
}
