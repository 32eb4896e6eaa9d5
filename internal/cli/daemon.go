package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xcleanup/internal/database"
	"xcleanup/internal/logging"
	"xcleanup/internal/scheduler"
)

// NewDaemonCommand creates the 'xcleanup daemon' command
func NewDaemonCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run cleanups on the configured cron schedule",
		Long: `Run unattended cleanups on the configured schedule until SIGINT or SIGTERM.

SIGHUP or editing the config file reloads it; SIGUSR1 starts a run at once.
When prometheus.port is set, /metrics, /health, /trigger and /reload are
served on that port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log := logging.New(cfg.Logging, cmd.ErrOrStderr())
			defer log.Close()

			d := scheduler.NewDaemon(path, cfg, log, dryRun)
			if cfg.History.Enabled {
				db, err := database.NewDeletionDB(cfg.History.DatabasePath)
				if err != nil {
					return fmt.Errorf("open history database: %w", err)
				}
				defer db.Close()
				d.SetHistory(db)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return d.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be deleted without deleting")

	return cmd
}
