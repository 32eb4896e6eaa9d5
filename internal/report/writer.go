package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stampLayout = "20060102_150405"

// Paths locates the two files produced by WriteReports.
type Paths struct {
	Summary string
	Detail  string
}

// WriteReports stores summary and detail as cleanup-summary-<stamp>.log and
// cleanup-detail-<stamp>.log under dir, creating dir when needed.
func WriteReports(dir, summary, detail string, now time.Time) (Paths, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Paths{}, fmt.Errorf("create report directory %s: %w", dir, err)
	}

	stamp := now.Format(stampLayout)
	paths := Paths{
		Summary: filepath.Join(dir, "cleanup-summary-"+stamp+".log"),
		Detail:  filepath.Join(dir, "cleanup-detail-"+stamp+".log"),
	}

	if err := os.WriteFile(paths.Summary, []byte(summary), 0o640); err != nil {
		return Paths{}, fmt.Errorf("write summary report: %w", err)
	}
	if err := os.WriteFile(paths.Detail, []byte(detail), 0o640); err != nil {
		return Paths{}, fmt.Errorf("write detail report: %w", err)
	}
	return paths, nil
}

// WriteConfirmation stores the plan summary an operator must review before a
// live run as job-confirm-<jobID>.log under dir.
func WriteConfirmation(dir, jobID, summary string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "job-confirm-"+jobID+".log")
	if err := os.WriteFile(path, []byte(summary), 0o640); err != nil {
		return "", fmt.Errorf("write confirmation file: %w", err)
	}
	return path, nil
}

// Subject builds the notification subject line for a run.
func Subject(dryRun bool, now time.Time) string {
	prefix := ""
	if dryRun {
		prefix = "dry-run "
	}
	return fmt.Sprintf("Cleanup %sreport %s", prefix, now.Format(time.DateTime))
}

// Message appends the detail report location to a summary.
func Message(summary, detailPath string) string {
	return summary + "\nDetail report: " + detailPath
}
