package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"xcleanup/internal/config"
	"xcleanup/internal/database"
	"xcleanup/internal/disk"
	"xcleanup/internal/fsops"
	"xcleanup/internal/logging"
	"xcleanup/internal/metrics"
	"xcleanup/internal/notify"
)

const (
	pruneSchedule  = "@daily"
	reloadDebounce = 500 * time.Millisecond
)

// Daemon runs cleanups on a cron schedule until its context ends. SIGHUP, a
// config file edit or POST /reload reloads the configuration; SIGUSR1 or
// POST /trigger starts an immediate run. Runs never overlap: a tick that
// fires while a run is in progress is skipped.
type Daemon struct {
	configPath string
	dryRun     bool
	log        *logging.Logger
	logger     *slog.Logger

	mu         sync.Mutex
	cfg        *config.Config
	cron       *cron.Cron
	runEntry   cron.EntryID
	pruneEntry cron.EntryID

	running sync.Mutex
	wg      sync.WaitGroup

	history *database.DeletionDB
	disk    disk.Reader
	deleter fsops.Deleter
}

// NewDaemon creates a daemon around an already validated configuration.
func NewDaemon(configPath string, cfg *config.Config, log *logging.Logger, dryRun bool) *Daemon {
	metrics.Init()
	return &Daemon{
		configPath: configPath,
		dryRun:     dryRun,
		log:        log,
		logger:     log.With("component", "daemon"),
		cfg:        cfg,
		cron:       cron.New(),
		disk:       disk.StatfsReader{},
	}
}

// SetHistory enables deletion history and its retention pruning.
func (d *Daemon) SetHistory(db *database.DeletionDB) { d.history = db }

// SetDiskReader replaces the usage source of every run.
func (d *Daemon) SetDiskReader(r disk.Reader) { d.disk = r }

// SetDeleter replaces the filesystem deleter of every run.
func (d *Daemon) SetDeleter(del fsops.Deleter) { d.deleter = del }

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run blocks until ctx is cancelled. It performs one run immediately.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(signals)

	metrics.SetTriggerChannel(signals)
	metrics.SetReloadChannel(signals)
	defer func() {
		metrics.SetTriggerChannel(nil)
		metrics.SetReloadChannel(nil)
	}()

	if cfg.Prometheus.Port > 0 {
		metrics.StartServer(cfg.PrometheusAddress(), d.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(shutdownCtx, d.logger)
		}()
	}

	var changes <-chan struct{}
	if d.configPath != "" {
		watcher, err := watchConfig(d.configPath, reloadDebounce, d.logger)
		if err != nil {
			d.logger.Warn("config file watching disabled", "error", err)
		} else {
			defer watcher.Close()
			changes = watcher.Changes()
		}
	}

	if err := d.schedule(ctx, cfg); err != nil {
		return err
	}
	d.cron.Start()
	d.logger.Info("daemon started", "schedule", cfg.Schedule, "dry_run", d.dryRun)

	d.spawn(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon shutting down")
			stopped := d.cron.Stop()
			<-stopped.Done()
			d.wg.Wait()
			return nil

		case sig := <-signals:
			switch sig {
			case syscall.SIGHUP:
				d.reloadAndLog(ctx)
			case syscall.SIGUSR1:
				d.spawn(ctx, "trigger")
			}

		case <-changes:
			d.reloadAndLog(ctx)
		}
	}
}

// Reload re-reads the config file and reschedules. The previous
// configuration stays active when the new one is invalid.
func (d *Daemon) Reload(ctx context.Context) error {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues("failure").Inc()
		return err
	}
	if err := d.schedule(ctx, cfg); err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues("failure").Inc()
		return err
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.log.SetLevel(cfg.Logging.Level)

	metrics.ConfigReloadsTotal.WithLabelValues("success").Inc()
	d.logger.Info("configuration reloaded", "schedule", cfg.Schedule)
	return nil
}

func (d *Daemon) reloadAndLog(ctx context.Context) {
	if err := d.Reload(ctx); err != nil {
		d.logger.Error("config reload failed, keeping previous configuration", "error", err)
	}
}

// schedule replaces the cron entries with the ones cfg asks for.
func (d *Daemon) schedule(ctx context.Context, cfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	runID, err := d.cron.AddFunc(cfg.Schedule, func() { d.Tick(ctx, "schedule") })
	if err != nil {
		return fmt.Errorf("%w: schedule %q: %v", config.ErrInvalidConfig, cfg.Schedule, err)
	}

	var pruneID cron.EntryID
	if d.history != nil && cfg.History.RetentionDays > 0 {
		days := cfg.History.RetentionDays
		pruneID, err = d.cron.AddFunc(pruneSchedule, func() { d.Prune(days) })
		if err != nil {
			d.cron.Remove(runID)
			return fmt.Errorf("failed to schedule history pruning: %w", err)
		}
	}

	if d.runEntry != 0 {
		d.cron.Remove(d.runEntry)
	}
	if d.pruneEntry != 0 {
		d.cron.Remove(d.pruneEntry)
	}
	d.runEntry, d.pruneEntry = runID, pruneID
	return nil
}

// NextRun returns the next scheduled cleanup time, or the zero time before
// the daemon has started.
func (d *Daemon) NextRun() time.Time {
	d.mu.Lock()
	id := d.runEntry
	d.mu.Unlock()
	return d.cron.Entry(id).Next
}

func (d *Daemon) spawn(ctx context.Context, reason string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Tick(ctx, reason)
	}()
}

// Tick performs one run unless another is still in progress.
func (d *Daemon) Tick(ctx context.Context, reason string) {
	if !d.running.TryLock() {
		metrics.SkippedTicksTotal.Inc()
		d.logger.Warn("previous run still in progress, skipping", "reason", reason)
		return
	}
	defer d.running.Unlock()

	if ctx.Err() != nil {
		return
	}

	cfg := d.Config()
	runner := NewRunner(cfg, d.log.Logger)
	runner.SetDiskReader(d.disk)
	runner.SetNotifier(notify.FromConfig(cfg.Notifications, d.log.Logger))
	if d.history != nil {
		runner.SetHistory(d.history)
	}
	if d.deleter != nil {
		runner.SetDeleter(d.deleter)
	}

	d.logger.Info("starting cleanup run", "reason", reason)
	rep, err := runner.RunOnce(ctx, Options{DryRun: d.dryRun, Quiet: true})
	if err != nil {
		d.logger.Error("Cleanup failed", "reason", reason, "error", err)
		return
	}
	d.logger.Info("cleanup run finished", "run_id", rep.RunID, "outcome", rep.Outcome)
}

// Prune removes history rows older than days.
func (d *Daemon) Prune(days int) {
	if d.history == nil {
		return
	}
	n, err := d.history.DeleteOldRecords(days)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		d.logger.Error("history pruning failed", "error", err)
		return
	}
	metrics.HistoryRowsPrunedTotal.Add(float64(n))
	if n > 0 {
		d.logger.Info("history pruned", "rows", n, "retention_days", days)
	}
}
