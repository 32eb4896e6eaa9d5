package fsops

import "os"

// OSDeleter implements Deleter with os.Remove, which unlinks files and
// symlinks and removes only empty directories.
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}
