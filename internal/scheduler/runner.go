// Package scheduler drives cleanup runs: a single confirmed or dry run for
// the CLI, and a cron-scheduled daemon loop around the same pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"xcleanup/internal/cleanup"
	"xcleanup/internal/config"
	"xcleanup/internal/database"
	"xcleanup/internal/disk"
	"xcleanup/internal/fsops"
	"xcleanup/internal/metrics"
	"xcleanup/internal/notify"
	"xcleanup/internal/report"
	"xcleanup/internal/safety"
	"xcleanup/internal/scan"
	"xcleanup/internal/state"
)

// ErrConfirmationRequired is returned when a live run needs confirmation but
// no Confirmer was supplied.
var ErrConfirmationRequired = errors.New("confirmation required but no confirmer configured")

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomePartial   Outcome = "partial"
	OutcomeEmpty     Outcome = "empty"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Options control one run.
type Options struct {
	DryRun bool
	// Quiet skips interactive confirmation.
	Quiet     bool
	Confirmer Confirmer
	// JobID and ConfirmKey are generated when empty.
	JobID      string
	ConfirmKey string
}

// RunReport describes what a run did.
type RunReport struct {
	RunID       string
	Outcome     Outcome
	Plan        *cleanup.Plan
	Result      *cleanup.Result
	Reports     report.Paths
	ConfirmPath string
	Summary     string
}

// Runner executes the plan, confirm, execute and report pipeline.
type Runner struct {
	cfg      *config.Config
	disk     disk.Reader
	history  *database.DeletionDB
	notifier *notify.Composite
	deleter  fsops.Deleter
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a runner reading real disk usage.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	return &Runner{
		cfg:    cfg,
		disk:   disk.StatfsReader{},
		logger: logger,
		now:    time.Now,
	}
}

// SetDiskReader replaces the usage source.
func (r *Runner) SetDiskReader(d disk.Reader) { r.disk = d }

// SetHistory enables recording of every attempt in the history database.
func (r *Runner) SetHistory(db *database.DeletionDB) { r.history = db }

// SetNotifier installs the report notifier.
func (r *Runner) SetNotifier(n *notify.Composite) { r.notifier = n }

// SetDeleter replaces the filesystem deleter used for execution.
func (r *Runner) SetDeleter(d fsops.Deleter) { r.deleter = d }

// SetClock overrides the time source for report names and subjects.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// RunOnce performs one complete run. On error the returned report may still
// carry a partial result.
func (r *Runner) RunOnce(ctx context.Context, opts Options) (*RunReport, error) {
	if r.cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := r.now()
	rep := &RunReport{RunID: opts.JobID}
	if rep.RunID == "" {
		rep.RunID = NewShortID()
	}
	logger := r.logger.With("run_id", rep.RunID)

	validator := r.validator()
	if err := checkRoots(validator, r.cfg); err != nil {
		r.finish(rep, started, "", OutcomeFailed, opts.DryRun)
		return rep, err
	}

	usage, err := r.disk.Read(r.cfg.DiskCheckPath)
	if err != nil {
		r.finish(rep, started, "", OutcomeFailed, opts.DryRun)
		return rep, fmt.Errorf("read disk usage: %w", err)
	}
	metrics.UpdateDiskMetrics(r.cfg.DiskCheckPath, usage)

	emergency := cleanup.IsEmergency(r.cfg.Emergency, usage)
	metrics.SetEmergency(emergency)
	if emergency {
		logger.Warn("emergency mode active", "free_percent", usage.FreePercent(), "free_bytes", usage.FreeBytes)
	}

	store, err := state.Open(r.cfg.Logging.StateFile)
	if err != nil {
		r.finish(rep, started, "", OutcomeFailed, opts.DryRun)
		return rep, err
	}

	planner := cleanup.NewPlanner(scan.NewScanner(logger), store, logger)
	plan, err := planner.Plan(r.cfg, usage, emergency)
	if err != nil {
		r.finish(rep, started, "", OutcomeFailed, opts.DryRun)
		return rep, err
	}
	rep.Plan = plan
	metrics.SetCleanupMode(string(plan.Mode()))
	metrics.RecordPlan(plan.FileCount(), plan.DirCount())

	if plan.IsEmpty() {
		logger.Info("No items to delete.")
		r.finish(rep, started, plan.Mode(), OutcomeEmpty, opts.DryRun)
		return rep, nil
	}

	if !opts.Quiet {
		ok, err := r.confirm(ctx, rep, plan, opts)
		if err != nil {
			r.finish(rep, started, plan.Mode(), OutcomeFailed, opts.DryRun)
			return rep, err
		}
		if !ok {
			logger.Info("cleanup canceled by user")
			r.finish(rep, started, plan.Mode(), OutcomeCancelled, opts.DryRun)
			return rep, nil
		}
	}

	if opts.DryRun {
		rep.Summary = report.DryRunSummary(plan)
		if err := r.writeAndNotify(ctx, rep, report.DryRunDetail(plan), true); err != nil {
			r.finish(rep, started, plan.Mode(), OutcomeFailed, true)
			return rep, err
		}
		r.finish(rep, started, plan.Mode(), OutcomeDryRun, true)
		return rep, nil
	}

	executor := cleanup.NewExecutor(store, r.audit(logger, rep.RunID))
	executor.SetValidator(validator)
	if r.deleter != nil {
		executor.SetDeleter(r.deleter)
	}

	result, execErr := executor.Execute(plan)
	rep.Result = result
	rep.Summary = report.ExecutionSummary(plan, result)

	if err := r.writeAndNotify(ctx, rep, report.ExecutionDetail(result), false); err != nil {
		execErr = errors.Join(execErr, err)
	}

	outcome := OutcomeSuccess
	switch {
	case execErr != nil:
		outcome = OutcomeFailed
	case result.HasFailures():
		outcome = OutcomePartial
	}
	r.finish(rep, started, plan.Mode(), outcome, false)

	logger.Info("cleanup run complete",
		"mode", plan.Mode(),
		"deleted", len(result.Deleted),
		"failed", len(result.Failed),
		"bytes_freed", result.DeletedBytes(),
	)
	return rep, execErr
}

func (r *Runner) confirm(ctx context.Context, rep *RunReport, plan *cleanup.Plan, opts Options) (bool, error) {
	if opts.Confirmer == nil {
		return false, ErrConfirmationRequired
	}

	key := opts.ConfirmKey
	if key == "" {
		key = NewShortID()
	}

	path, err := report.WriteConfirmation(r.cfg.Logging.Directory, rep.RunID, report.PlanSummary(key, plan))
	if err != nil {
		return false, err
	}
	rep.ConfirmPath = path

	return opts.Confirmer.Confirm(ctx, Confirmation{
		JobID:      rep.RunID,
		ConfirmKey: key,
		Path:       path,
	})
}

func (r *Runner) writeAndNotify(ctx context.Context, rep *RunReport, detail string, dryRun bool) error {
	now := r.now()
	paths, err := report.WriteReports(r.cfg.Logging.Directory, rep.Summary, detail, now)
	if err != nil {
		return err
	}
	rep.Reports = paths

	if r.cfg.Notifications.Enabled && r.notifier != nil {
		_ = r.notifier.SendAll(ctx, report.Subject(dryRun, now), report.Message(rep.Summary, paths.Detail))
	}
	return nil
}

func (r *Runner) audit(logger *slog.Logger, runID string) cleanup.AuditSink {
	sinks := cleanup.MultiAudit{cleanup.LogAudit{Logger: logger}}
	if r.history != nil {
		sinks = append(sinks, r.history.Sink(runID, logger))
	}
	return sinks
}

// validator guards every configured root and protects the service's own
// state, logs and history.
func (r *Runner) validator() *safety.Validator {
	roots := config.RootCandidates(r.cfg.Paths.AllowedPaths)
	roots = append(roots, config.RootCandidates(r.cfg.Emergency.Paths)...)

	protected := append([]string{}, r.cfg.Paths.ProtectedPaths...)
	protected = append(protected,
		r.cfg.Logging.StateFile,
		r.cfg.Logging.StateFile+".lock",
		r.cfg.Logging.Directory,
		r.cfg.History.DatabasePath,
	)
	return safety.NewValidator(roots, protected)
}

// checkRoots refuses configurations whose scan roots are themselves
// protected.
func checkRoots(v *safety.Validator, cfg *config.Config) error {
	roots := config.RootCandidates(cfg.Paths.AllowedPaths)
	roots = append(roots, config.RootCandidates(cfg.Emergency.Paths)...)
	for _, root := range roots {
		if safety.IsProtectedPath(root, v.ProtectedPaths) {
			return fmt.Errorf("scan root %s: %w", root, safety.ErrProtectedPath)
		}
		if resolved, err := filepath.EvalSymlinks(root); err == nil && safety.IsProtectedPath(resolved, v.ProtectedPaths) {
			return fmt.Errorf("scan root %s resolves to %s: %w", root, resolved, safety.ErrProtectedPath)
		}
	}
	return nil
}

func (r *Runner) finish(rep *RunReport, started time.Time, mode cleanup.Mode, outcome Outcome, dryRun bool) {
	rep.Outcome = outcome
	if mode == "" {
		mode = cleanup.ModeStandard
	}

	took := r.now().Sub(started)
	metrics.RecordCleanupRun(string(mode), string(outcome), took)
	metrics.SetHealthy(outcome != OutcomeFailed)
	if outcome == OutcomeFailed {
		metrics.ErrorsTotal.Inc()
	}

	if r.history == nil {
		return
	}
	run := database.RunRecord{
		RunID:      rep.RunID,
		StartedAt:  started,
		FinishedAt: r.now(),
		Mode:       string(mode),
		DryRun:     dryRun,
		Outcome:    string(outcome),
	}
	if rep.Plan != nil {
		run.PlannedItems = rep.Plan.Len()
		run.FreeBytesBefore = int64(rep.Plan.DiskUsage().FreeBytes)
	}
	if rep.Result != nil {
		run.DeletedItems = len(rep.Result.Deleted)
		run.FailedItems = len(rep.Result.Failed)
		run.BytesFreed = rep.Result.DeletedBytes()
	}
	if err := r.history.RecordRun(run); err != nil {
		r.logger.Warn("failed to record run history", "run_id", rep.RunID, "error", err)
	}
}

// NewShortID returns a six character random identifier used for job IDs and
// confirm keys.
func NewShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
