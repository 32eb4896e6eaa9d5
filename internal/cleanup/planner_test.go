package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"xcleanup/internal/config"
	"xcleanup/internal/disk"
	"xcleanup/internal/state"
)

var testUsage = disk.Usage{TotalBytes: 100 << 30, FreeBytes: 50 << 30}

func newTestPlanner(t *testing.T) (*Planner, *state.Store) {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewPlanner(nil, store, nil), store
}

// TestPlanMinAge: an old file is admitted, a fresh one is not.
func TestPlanMinAge(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "old.log")
	fresh := filepath.Join(root, "new.log")
	writeAged(t, old, "old", 2*time.Hour)
	writeAged(t, fresh, "new", 0)

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(baseConfig(root), testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	got := itemPaths(plan.Items())
	if !slices.Contains(got, old) {
		t.Errorf("expected %s in plan, got %v", old, got)
	}
	if slices.Contains(got, fresh) {
		t.Errorf("fresh file %s must not be planned", fresh)
	}
	if plan.Mode() != ModeStandard {
		t.Errorf("mode = %s, want STANDARD", plan.Mode())
	}
}

// TestPlanEmptyDirectory: an old empty directory is admitted; once it holds
// a file it is not, whatever its age.
func TestPlanEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	d := filepath.Join(root, "d")
	mkdirAged(t, d, 2*time.Hour)

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(baseConfig(root), testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !slices.Contains(itemPaths(plan.Items()), d) {
		t.Fatalf("expected empty dir %s in plan, got %v", d, itemPaths(plan.Items()))
	}
	for _, it := range plan.Items() {
		if it.Path == d && (it.Type != ItemDir || it.SizeBytes != 0) {
			t.Errorf("dir item = %+v, want type dir with size 0", it)
		}
	}

	writeAged(t, filepath.Join(d, "recent.txt"), "x", 0)
	setAge(t, d, 2*time.Hour)

	plan, err = planner.Plan(baseConfig(root), testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if slices.Contains(itemPaths(plan.Items()), d) {
		t.Errorf("non-empty dir %s must not be planned", d)
	}
}

// TestPlanExclusionWins: an excluded path is never admitted even though it
// sits under an allowed root.
func TestPlanExclusionWins(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "important.keep")
	pinnedDir := filepath.Join(root, "pinned")
	pinnedFile := filepath.Join(pinnedDir, "data.log")
	drop := filepath.Join(root, "drop.log")
	writeAged(t, keep, "k", 2*time.Hour)
	writeAged(t, pinnedFile, "p", 2*time.Hour)
	writeAged(t, drop, "d", 2*time.Hour)

	cfg := baseConfig(root)
	cfg.Paths.ExcludedPaths = []string{`#\.keep$#`, pinnedDir}

	planner, _ := newTestPlanner(t)
	rec := newRecordingMetrics()
	planner.SetMetrics(rec)

	plan, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	got := itemPaths(plan.Items())
	for _, excluded := range []string{keep, pinnedDir, pinnedFile} {
		if slices.Contains(got, excluded) {
			t.Errorf("excluded path %s was planned: %v", excluded, got)
		}
	}
	if !slices.Contains(got, drop) {
		t.Errorf("expected %s in plan", drop)
	}
	if rec.skipped[SkipExcluded] != 3 {
		t.Errorf("excluded skips = %d, want 3", rec.skipped[SkipExcluded])
	}
}

// TestPlanMaxItems: the cap keeps the first admitted items in scan order.
func TestPlanMaxItems(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.log", "b.log", "c.log", "d.log", "e.log"} {
		writeAged(t, filepath.Join(root, name), name, 2*time.Hour)
	}

	cfg := baseConfig(root)
	cfg.Cleanup.MaxItems = 2

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	want := []string{filepath.Join(root, "a.log"), filepath.Join(root, "b.log")}
	if got := itemPaths(plan.Items()); !slices.Equal(got, want) {
		t.Errorf("plan = %v, want %v", got, want)
	}
}

// TestPlanCooldown: a recently deleted path is skipped while the window is
// open and admitted again when the window is disabled.
func TestPlanCooldown(t *testing.T) {
	root := t.TempDir()
	f := filepath.Join(root, "again.log")
	writeAged(t, f, "x", 2*time.Hour)

	planner, store := newTestPlanner(t)
	if err := store.RecordDeleted(f); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig(root)
	cfg.Cleanup.SkipIfDeletedWithinSeconds = 3600

	plan, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if slices.Contains(itemPaths(plan.Items()), f) {
		t.Errorf("path inside cooldown window was planned")
	}

	cfg.Cleanup.SkipIfDeletedWithinSeconds = 0
	plan, err = planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !slices.Contains(itemPaths(plan.Items()), f) {
		t.Errorf("disabled cooldown should admit the path")
	}
}

// TestPlanIdempotent: planning twice without executing yields the same plan.
func TestPlanIdempotent(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "x", "one.log"), "1", 3*time.Hour)
	writeAged(t, filepath.Join(root, "two.log"), "22", 3*time.Hour)
	mkdirAged(t, filepath.Join(root, "empty"), 3*time.Hour)

	cfg := baseConfig(root)
	cfg.Cleanup.SkipIfDeletedWithinSeconds = 86400

	planner, _ := newTestPlanner(t)
	first, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(itemPaths(first.Items()), itemPaths(second.Items())) {
		t.Errorf("plans differ:\n%v\n%v", itemPaths(first.Items()), itemPaths(second.Items()))
	}
	if first.Len() != 3 {
		t.Errorf("expected 3 items, got %d: %v", first.Len(), itemPaths(first.Items()))
	}
}

func TestPlanTypeToggles(t *testing.T) {
	root := t.TempDir()
	f := filepath.Join(root, "f.log")
	d := filepath.Join(root, "d")
	writeAged(t, f, "x", 2*time.Hour)
	mkdirAged(t, d, 2*time.Hour)

	planner, _ := newTestPlanner(t)

	cfg := baseConfig(root)
	cfg.Cleanup.DeleteFiles = false
	plan, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := itemPaths(plan.Items()); !slices.Equal(got, []string{d}) {
		t.Errorf("files disabled: plan = %v, want only %s", got, d)
	}

	cfg = baseConfig(root)
	cfg.Cleanup.DeleteEmptyDirectories = false
	plan, err = planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := itemPaths(plan.Items()); !slices.Equal(got, []string{f}) {
		t.Errorf("dirs disabled: plan = %v, want only %s", got, f)
	}
}

func TestPlanEmergencyRoots(t *testing.T) {
	base := t.TempDir()
	standardRoot := filepath.Join(base, "standard")
	emergencyRoot := filepath.Join(base, "emergency")
	standardFile := filepath.Join(standardRoot, "s.log")
	emergencyFile := filepath.Join(emergencyRoot, "e.log")
	writeAged(t, standardFile, "s", 2*time.Hour)
	writeAged(t, emergencyFile, "e", 2*time.Hour)

	cfg := baseConfig(standardRoot)
	cfg.Paths.AllowedPaths = []string{standardRoot, emergencyRoot}
	cfg.Emergency.Paths = []string{emergencyRoot}

	planner, _ := newTestPlanner(t)

	plan, err := planner.Plan(cfg, testUsage, true)
	if err != nil {
		t.Fatal(err)
	}
	got := itemPaths(plan.Items())
	if !slices.Contains(got, emergencyFile) || slices.Contains(got, standardFile) {
		t.Errorf("emergency plan = %v, want only emergency root contents", got)
	}
	if plan.Mode() != ModeEmergency || !plan.Emergency() {
		t.Errorf("mode = %s, want EMERGENCY", plan.Mode())
	}
	if !slices.Equal(plan.Roots(), []string{emergencyRoot}) {
		t.Errorf("roots = %v", plan.Roots())
	}

	plan, err = planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(itemPaths(plan.Items()), standardFile) {
		t.Errorf("standard plan should scan allowed roots, got %v", itemPaths(plan.Items()))
	}
}

// TestPlanEmergencyWithoutUsableRoots: an emergency override with no usable
// literal path yields an empty plan rather than an error.
func TestPlanEmergencyWithoutUsableRoots(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "f.log"), "x", 2*time.Hour)

	cfg := baseConfig(root)
	cfg.Emergency.Paths = []string{"#cache#", "/srv/*/tmp"}

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(cfg, testUsage, true)
	if err != nil {
		t.Fatalf("emergency plan should not fail: %v", err)
	}
	if !plan.IsEmpty() {
		t.Errorf("expected empty plan, got %v", itemPaths(plan.Items()))
	}
}

func TestPlanNoUsableRootsIsConfigError(t *testing.T) {
	cfg := baseConfig("/unused")
	cfg.Paths.AllowedPaths = []string{`#/var/tmp/.*#`, "relative/path"}

	planner, _ := newTestPlanner(t)
	_, err := planner.Plan(cfg, testUsage, false)
	if !errors.Is(err, config.ErrInvalidConfig) || !errors.Is(err, ErrNoRoots) {
		t.Fatalf("expected config error wrapping ErrNoRoots, got %v", err)
	}
}

func TestPlanMissingRootIsEmpty(t *testing.T) {
	cfg := baseConfig(filepath.Join(t.TempDir(), "gone"))

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.IsEmpty() {
		t.Errorf("expected empty plan, got %v", itemPaths(plan.Items()))
	}
}

func TestPlanTotals(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a"), "12345", 2*time.Hour)
	writeAged(t, filepath.Join(root, "b"), "123", 2*time.Hour)
	mkdirAged(t, filepath.Join(root, "c"), 2*time.Hour)

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(baseConfig(root), testUsage, false)
	if err != nil {
		t.Fatal(err)
	}

	if plan.TotalSizeBytes() != 8 {
		t.Errorf("total = %d, want 8", plan.TotalSizeBytes())
	}
	if plan.FileCount() != 2 || plan.DirCount() != 1 {
		t.Errorf("files=%d dirs=%d, want 2 and 1", plan.FileCount(), plan.DirCount())
	}
	if plan.DiskUsage() != testUsage {
		t.Errorf("usage not carried into plan")
	}

	items := plan.Items()
	items[0].Path = "/mutated"
	if plan.Items()[0].Path == "/mutated" {
		t.Error("Items must return a copy")
	}
}

func TestPlanNilConfig(t *testing.T) {
	planner, _ := newTestPlanner(t)
	if _, err := planner.Plan(nil, testUsage, false); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPlanSkipsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	mkdirAged(t, locked, 2*time.Hour)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	planner, _ := newTestPlanner(t)
	plan, err := planner.Plan(baseConfig(root), testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(itemPaths(plan.Items()), locked) {
		t.Error("unreadable directory must count as non-empty")
	}
}

// TestPlanEmergencyExplicitEmptyPaths: an explicit empty emergency list
// scans nothing; an absent one falls back to the allowed paths.
func TestPlanEmergencyExplicitEmptyPaths(t *testing.T) {
	root := t.TempDir()
	f := filepath.Join(root, "f.log")
	writeAged(t, f, "x", 2*time.Hour)

	planner, _ := newTestPlanner(t)

	cfg := baseConfig(root)
	cfg.Emergency.Paths = []string{}
	plan, err := planner.Plan(cfg, testUsage, true)
	if err != nil {
		t.Fatalf("emergency plan should not fail: %v", err)
	}
	if !plan.IsEmpty() || len(plan.Roots()) != 0 {
		t.Errorf("explicit empty list: plan = %v, roots = %v", itemPaths(plan.Items()), plan.Roots())
	}

	cfg.Emergency.Paths = nil
	plan, err = planner.Plan(cfg, testUsage, true)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(itemPaths(plan.Items()), f) {
		t.Errorf("absent list should fall back to allowed paths, got %v", itemPaths(plan.Items()))
	}
}

// TestPlanNeverAdmitsLinks: a root that is a link, or a followed link to an
// empty directory, is not planned even when old and empty.
func TestPlanNeverAdmitsLinks(t *testing.T) {
	base := t.TempDir()

	emptyTarget := filepath.Join(base, "empty-target")
	mkdirAged(t, emptyTarget, 2*time.Hour)
	linkedRoot := filepath.Join(base, "linked-root")
	if err := os.Symlink(emptyTarget, linkedRoot); err != nil {
		t.Fatal(err)
	}

	planner, _ := newTestPlanner(t)
	rec := newRecordingMetrics()
	planner.SetMetrics(rec)

	plan, err := planner.Plan(baseConfig(linkedRoot), testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.IsEmpty() {
		t.Errorf("linked root planned: %v", itemPaths(plan.Items()))
	}
	if rec.skipped[SkipLinkedRoot] != 1 {
		t.Errorf("skips = %v, want one %s", rec.skipped, SkipLinkedRoot)
	}

	root := filepath.Join(base, "root")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	dirLink := filepath.Join(root, "dir-link")
	if err := os.Symlink(emptyTarget, dirLink); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig(root)
	cfg.Paths.FollowSymlinks = true
	plan, err = planner.Plan(cfg, testUsage, false)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(itemPaths(plan.Items()), dirLink) {
		t.Errorf("followed directory link planned: %v", itemPaths(plan.Items()))
	}
	if rec.skipped[SkipLinkedDir] != 1 {
		t.Errorf("skips = %v, want one %s", rec.skipped, SkipLinkedDir)
	}
}
