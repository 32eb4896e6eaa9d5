package cleanup

import (
	"slices"
	"time"

	"xcleanup/internal/disk"
)

// ItemType distinguishes file from directory plan items.
type ItemType string

const (
	ItemFile ItemType = "file"
	ItemDir  ItemType = "dir"
)

// Mode names the policy a plan was built under.
type Mode string

const (
	ModeStandard  Mode = "STANDARD"
	ModeEmergency Mode = "EMERGENCY"
)

// Item is one path admitted for deletion. SizeBytes is 0 for directories.
type Item struct {
	Path      string
	Type      ItemType
	SizeBytes int64
	ModTime   time.Time
}

// IsDir reports whether the item is a directory.
func (i Item) IsDir() bool { return i.Type == ItemDir }

// Plan is the immutable output of planning.
type Plan struct {
	items     []Item
	usage     disk.Usage
	emergency bool
	roots     []string
}

// NewPlan builds a plan from already admitted items.
func NewPlan(items []Item, usage disk.Usage, emergency bool, roots []string) *Plan {
	return &Plan{
		items:     slices.Clone(items),
		usage:     usage,
		emergency: emergency,
		roots:     slices.Clone(roots),
	}
}

// Items returns a copy of the admitted items in scan order.
func (p *Plan) Items() []Item { return slices.Clone(p.items) }

// Roots returns the scan roots the plan was built from.
func (p *Plan) Roots() []string { return slices.Clone(p.roots) }

// DiskUsage returns the usage snapshot taken before planning.
func (p *Plan) DiskUsage() disk.Usage { return p.usage }

// Emergency reports whether the plan was built in emergency mode.
func (p *Plan) Emergency() bool { return p.emergency }

// Len returns the number of planned items.
func (p *Plan) Len() int { return len(p.items) }

// IsEmpty reports whether nothing was admitted.
func (p *Plan) IsEmpty() bool { return len(p.items) == 0 }

// Mode returns ModeEmergency or ModeStandard.
func (p *Plan) Mode() Mode {
	if p.emergency {
		return ModeEmergency
	}
	return ModeStandard
}

// TotalSizeBytes sums the sizes of all items.
func (p *Plan) TotalSizeBytes() int64 {
	var total int64
	for _, it := range p.items {
		total += it.SizeBytes
	}
	return total
}

// FileCount returns the number of planned files.
func (p *Plan) FileCount() int { return countType(p.items, ItemFile) }

// DirCount returns the number of planned directories.
func (p *Plan) DirCount() int { return countType(p.items, ItemDir) }

// Failure is an item that could not be deleted and why.
type Failure struct {
	Item
	Err error
}

// Result is the outcome of executing a plan.
type Result struct {
	Deleted []Item
	Failed  []Failure
}

// DeletedBytes sums the sizes of deleted items.
func (r *Result) DeletedBytes() int64 {
	var total int64
	for _, it := range r.Deleted {
		total += it.SizeBytes
	}
	return total
}

// FailedItems returns the items of every failure.
func (r *Result) FailedItems() []Item {
	out := make([]Item, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.Item
	}
	return out
}

// DeletedFiles and DeletedDirs count deleted items by type.
func (r *Result) DeletedFiles() int { return countType(r.Deleted, ItemFile) }
func (r *Result) DeletedDirs() int  { return countType(r.Deleted, ItemDir) }

// HasFailures reports whether any item failed.
func (r *Result) HasFailures() bool { return len(r.Failed) > 0 }

func countType(items []Item, t ItemType) int {
	n := 0
	for _, it := range items {
		if it.Type == t {
			n++
		}
	}
	return n
}
