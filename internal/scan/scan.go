package scan

import (
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Entry is a single filesystem object produced by a scan.
type Entry struct {
	Path      string
	IsDir     bool
	Size      int64 // 0 for directories
	ModTime   time.Time
	IsSymlink bool
}

// Scanner walks root paths and yields entries children-before-parent so that
// a directory is seen only after everything beneath it.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a new Scanner with the given logger
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger.With("component", "scanner")}
}

type fileID struct {
	dev uint64
	ino uint64
}

// walk holds per-scan state; a Scanner may run many scans.
type walk struct {
	logger  *slog.Logger
	follow  bool
	visited map[fileID]struct{}
}

// Scan yields, for each existing root, the root itself followed by all of its
// descendants in depth-first post-order. Roots are resolved through symlinks
// whatever followSymlinks says; a root that does not exist, or a dangling
// root link, is skipped. Directory entries are visited in lexical order. The
// walk stops as soon as the consumer stops ranging.
func (s *Scanner) Scan(roots []string, followSymlinks bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		w := &walk{
			logger:  s.logger,
			follow:  followSymlinks,
			visited: make(map[fileID]struct{}),
		}

		for _, root := range roots {
			entry, descend, ok := w.inspectRoot(root)
			if !ok {
				continue
			}
			if !yield(entry) {
				return
			}
			if !descend {
				continue
			}
			if !w.children(root, yield) {
				return
			}
		}
	}
}

// inspectRoot classifies a configured root. Unlike descendants, a root link
// is always resolved, so a linked root is scanned as the directory it points
// at.
func (w *walk) inspectRoot(root string) (entry Entry, descend bool, ok bool) {
	linfo, err := os.Lstat(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("failed to stat root", "path", root, "error", err)
		}
		return Entry{}, false, false
	}
	info, err := os.Stat(root)
	if err != nil {
		w.logger.Warn("root does not resolve, skipping", "path", root, "error", err)
		return Entry{}, false, false
	}

	entry = Entry{
		Path:      root,
		ModTime:   info.ModTime(),
		IsSymlink: linfo.Mode()&fs.ModeSymlink != 0,
	}
	if !info.IsDir() {
		entry.Size = info.Size()
		return entry, false, true
	}

	entry.IsDir = true
	if !w.markVisited(info) {
		w.logger.Debug("root already scanned, not descending", "path", root)
		return entry, false, true
	}
	return entry, true, true
}

// inspect classifies a path. descend reports whether the path is a directory
// the walk should enter.
func (w *walk) inspect(path string) (entry Entry, descend bool, ok bool) {
	info, err := os.Lstat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("failed to stat path", "path", path, "error", err)
		}
		return Entry{}, false, false
	}

	entry = Entry{
		Path:    path,
		ModTime: info.ModTime(),
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		entry.IsSymlink = true
		if !w.follow {
			entry.Size = info.Size()
			return entry, false, true
		}
		target, err := os.Stat(path)
		if err != nil {
			// dangling link: the link itself is the leaf
			entry.Size = info.Size()
			return entry, false, true
		}
		info = target
		entry.ModTime = target.ModTime()
	}

	if !info.IsDir() {
		entry.Size = info.Size()
		return entry, false, true
	}

	entry.IsDir = true
	if w.follow && !w.markVisited(info) {
		w.logger.Debug("symlink cycle detected, not descending", "path", path)
		return entry, false, true
	}
	return entry, true, true
}

// markVisited records a directory's identity and reports whether it was new.
func (w *walk) markVisited(info fs.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	id := fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}
	if _, seen := w.visited[id]; seen {
		return false
	}
	w.visited[id] = struct{}{}
	return true
}

// children yields every descendant of dir in post-order. It returns false
// when the consumer asked to stop.
func (w *walk) children(dir string, yield func(Entry) bool) bool {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("cannot read directory, skipping its contents", "path", dir, "error", err)
		return true
	}

	for _, de := range dirEntries {
		path := filepath.Join(dir, de.Name())
		entry, descend, ok := w.inspect(path)
		if !ok {
			continue
		}
		if descend && !w.children(path, yield) {
			return false
		}
		if !yield(entry) {
			return false
		}
	}
	return true
}
