// Package report renders the plain-text summary and detail reports of a
// cleanup run and writes them next to the service log.
package report

import (
	"fmt"
	"strings"

	"xcleanup/internal/cleanup"
)

const bytesPerMB = 1024 * 1024

// PlanSummary renders the confirmation document shown before a live run.
func PlanSummary(confirmKey string, plan *cleanup.Plan) string {
	items := plan.Items()
	free := plan.DiskUsage().FreeBytes
	total := plan.TotalSizeBytes()

	var b strings.Builder
	fmt.Fprintf(&b, "Confirm key: %s\n", confirmKey)
	fmt.Fprintf(&b, "Total files: %d\n", plan.FileCount())
	fmt.Fprintf(&b, "Total directories: %d\n", plan.DirCount())
	writeTotals(&b, total, free)
	b.WriteString("\nPlanned items:\n")
	b.WriteString(renderItems(items))
	return b.String()
}

// DryRunSummary renders the summary of a dry run.
func DryRunSummary(plan *cleanup.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s (DRY-RUN)\n", plan.Mode())
	fmt.Fprintf(&b, "Planned files: %d\n", plan.FileCount())
	fmt.Fprintf(&b, "Planned directories: %d\n", plan.DirCount())
	writeTotals(&b, plan.TotalSizeBytes(), plan.DiskUsage().FreeBytes)
	return b.String()
}

// DryRunDetail lists every planned item.
func DryRunDetail(plan *cleanup.Plan) string {
	return "Planned items (dry-run):\n" + renderItems(plan.Items())
}

// ExecutionSummary renders the summary of a live run. Totals cover deleted
// items only; failures are counted on a trailing line when present.
func ExecutionSummary(plan *cleanup.Plan, result *cleanup.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\n", plan.Mode())
	fmt.Fprintf(&b, "Deleted files: %d\n", result.DeletedFiles())
	fmt.Fprintf(&b, "Deleted directories: %d\n", result.DeletedDirs())
	writeTotals(&b, result.DeletedBytes(), plan.DiskUsage().FreeBytes)
	if result.HasFailures() {
		fmt.Fprintf(&b, "Failed items: %d\n", len(result.Failed))
	}
	return b.String()
}

// ExecutionDetail lists deleted items, then failed items with their error.
func ExecutionDetail(result *cleanup.Result) string {
	var b strings.Builder
	b.WriteString("Deleted items:\n")
	b.WriteString(renderItems(result.Deleted))

	if result.HasFailures() {
		b.WriteString("\nFailed items:\n")
		for _, f := range result.Failed {
			fmt.Fprintf(&b, "%s | error: %v\n", itemLine(f.Item), f.Err)
		}
	}
	return b.String()
}

func writeTotals(b *strings.Builder, totalBytes int64, freeBytes uint64) {
	fmt.Fprintf(b, "Total size (MB): %.2f\n", toMB(float64(totalBytes)))
	fmt.Fprintf(b, "Free before (MB): %.2f\n", toMB(float64(freeBytes)))
	fmt.Fprintf(b, "Free after (MB): %.2f\n", toMB(float64(freeBytes)+float64(totalBytes)))
}

func renderItems(items []cleanup.Item) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = itemLine(it)
	}
	return strings.Join(lines, "\n") + "\n"
}

func itemLine(it cleanup.Item) string {
	return fmt.Sprintf("%s | %s | %.2f MB", it.Type, it.Path, toMB(float64(it.SizeBytes)))
}

func toMB(bytes float64) float64 {
	return bytes / bytesPerMB
}
