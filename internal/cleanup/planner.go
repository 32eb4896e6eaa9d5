package cleanup

import (
	"fmt"
	"log/slog"
	"time"

	"xcleanup/internal/config"
	"xcleanup/internal/disk"
	"xcleanup/internal/fsops"
	"xcleanup/internal/matcher"
	"xcleanup/internal/scan"
	"xcleanup/internal/state"
)

// Skip reasons reported to Metrics.
const (
	SkipExcluded      = "excluded"
	SkipNotAllowed    = "not_allowed"
	SkipCooldown      = "cooldown"
	SkipTooYoung      = "too_young"
	SkipFilesDisabled = "files_disabled"
	SkipDirsDisabled  = "dirs_disabled"
	SkipNotEmpty      = "not_empty"
	SkipLinkedRoot    = "linked_root"
	SkipLinkedDir     = "linked_dir"
)

// Planner turns scanned filesystem state into a deletion plan.
type Planner struct {
	scanner *scan.Scanner
	store   *state.Store
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewPlanner wires a planner. store may be nil, which disables the cooldown
// check.
func NewPlanner(scanner *scan.Scanner, store *state.Store, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if scanner == nil {
		scanner = scan.NewScanner(logger)
	}
	return &Planner{
		scanner: scanner,
		store:   store,
		logger:  logger.With("component", "planner"),
		metrics: newPromMetrics(),
		now:     time.Now,
	}
}

// SetClock overrides the time source used for age checks.
func (p *Planner) SetClock(now func() time.Time) { p.now = now }

// SetMetrics replaces the metrics sink.
func (p *Planner) SetMetrics(m Metrics) { p.metrics = m }

// Plan scans the resolved roots and admits entries that pass every filter.
func (p *Planner) Plan(cfg *config.Config, usage disk.Usage, emergency bool) (*Plan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}

	roots, err := p.resolveRoots(cfg, emergency)
	if err != nil {
		return nil, err
	}
	roots = p.dropStaleRoots(cfg, roots)

	m := matcher.New(cfg.Paths.AllowedPaths, cfg.Paths.ExcludedPaths)
	cooldown := cfg.Cooldown()
	minAge := cfg.MinAge()
	maxItems := cfg.Cleanup.MaxItems
	now := p.now()

	rootSet := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		rootSet[r] = struct{}{}
	}

	var items []Item
	for entry := range p.scanner.Scan(roots, cfg.Paths.FollowSymlinks) {
		if _, isRoot := rootSet[entry.Path]; isRoot && entry.IsSymlink {
			p.metrics.Skipped(SkipLinkedRoot)
			p.logger.Debug("entry skipped", "path", entry.Path, "reason", SkipLinkedRoot)
			continue
		}

		item, reason := p.admit(entry, cfg, m, cooldown, minAge, now)
		if reason != "" {
			p.metrics.Skipped(reason)
			p.logger.Debug("entry skipped", "path", entry.Path, "reason", reason)
			continue
		}

		items = append(items, item)
		if maxItems > 0 && len(items) >= maxItems {
			p.logger.Info("max_items reached, stopping scan", "max_items", maxItems)
			break
		}
	}

	plan := NewPlan(items, usage, emergency, roots)
	p.logger.Info("cleanup plan built",
		"mode", plan.Mode(),
		"roots", roots,
		"files", plan.FileCount(),
		"dirs", plan.DirCount(),
		"total_bytes", plan.TotalSizeBytes(),
	)
	return plan, nil
}

// resolveRoots picks emergency paths when escalated and configured, else the
// allowed paths. An explicit empty emergency list counts as configured and
// scans nothing. Only standard mode treats an empty root set as an error.
func (p *Planner) resolveRoots(cfg *config.Config, emergency bool) ([]string, error) {
	if emergency && cfg.Emergency.Paths != nil {
		roots := config.RootCandidates(cfg.Emergency.Paths)
		if len(roots) == 0 {
			p.logger.Warn("emergency paths contain no usable root, nothing to scan")
		}
		return roots, nil
	}

	roots := config.RootCandidates(cfg.Paths.AllowedPaths)
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, ErrNoRoots)
	}
	return roots, nil
}

func (p *Planner) dropStaleRoots(cfg *config.Config, roots []string) []string {
	timeout := cfg.NFSTimeout()
	if timeout <= 0 {
		return roots
	}

	kept := make([]string, 0, len(roots))
	for _, r := range roots {
		if disk.IsNFSStale(r, timeout) {
			p.logger.Warn("skipping stale NFS root", "path", r, "timeout", timeout)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// admit applies the filters in order and returns either an item or the
// reason the entry was rejected.
func (p *Planner) admit(entry scan.Entry, cfg *config.Config, m *matcher.Matcher, cooldown, minAge time.Duration, now time.Time) (Item, string) {
	if m.IsExcluded(entry.Path) {
		return Item{}, SkipExcluded
	}
	if !m.IsAllowed(entry.Path) {
		return Item{}, SkipNotAllowed
	}
	if cooldown > 0 && p.store != nil && p.store.WasDeletedRecently(entry.Path, cooldown) {
		return Item{}, SkipCooldown
	}
	if minAge > 0 && now.Sub(entry.ModTime) < minAge {
		return Item{}, SkipTooYoung
	}

	if !entry.IsDir {
		if !cfg.Cleanup.DeleteFiles {
			return Item{}, SkipFilesDisabled
		}
		return Item{
			Path:      entry.Path,
			Type:      ItemFile,
			SizeBytes: entry.Size,
			ModTime:   entry.ModTime,
		}, ""
	}

	if !cfg.Cleanup.DeleteEmptyDirectories {
		return Item{}, SkipDirsDisabled
	}
	// removing a followed link to a directory would unlink the link, not an
	// empty directory
	if entry.IsSymlink {
		return Item{}, SkipLinkedDir
	}
	if !fsops.IsEmptyDir(entry.Path) {
		return Item{}, SkipNotEmpty
	}
	return Item{
		Path:    entry.Path,
		Type:    ItemDir,
		ModTime: entry.ModTime,
	}, ""
}
