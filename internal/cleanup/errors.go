package cleanup

import "errors"

var (
	// ErrDirectoryNotEmpty is recorded when a planned directory gained
	// entries before it could be removed.
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// ErrNoRoots is returned when standard mode has no usable scan root.
	ErrNoRoots = errors.New("no valid root paths configured")
)
