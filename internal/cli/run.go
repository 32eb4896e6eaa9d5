package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xcleanup/internal/config"
	"xcleanup/internal/database"
	"xcleanup/internal/exitcodes"
	"xcleanup/internal/logging"
	"xcleanup/internal/notify"
	"xcleanup/internal/scheduler"
)

type runOptions struct {
	dryRun       bool
	quiet        bool
	failOnErrors bool
}

// NewRunCommand creates the 'xcleanup run' command
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute one cleanup",
		Long: `Plan a cleanup, ask for the confirm key written to the log directory,
then delete the planned items and write summary and detail reports.

Use --quiet to skip confirmation (required when stdin is not a terminal)
and --dry-run to only report what would be deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be deleted without deleting")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Skip interactive confirmation")
	cmd.Flags().BoolVar(&opts.failOnErrors, "fail-on-errors", false, "Exit non-zero when any item fails to delete")

	return cmd
}

func runCleanup(cmd *cobra.Command, opts *runOptions) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	if !opts.quiet && !stdinIsTerminal(in) {
		return fmt.Errorf("%w: confirmation needs an interactive terminal, use --quiet", config.ErrInvalidConfig)
	}

	log := logging.New(cfg.Logging, cmd.ErrOrStderr())
	defer log.Close()

	runner := scheduler.NewRunner(cfg, log.Logger)
	runner.SetNotifier(notify.FromConfig(cfg.Notifications, log.Logger))

	if cfg.History.Enabled {
		db, err := database.NewDeletionDB(cfg.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer db.Close()
		runner.SetHistory(db)
	}

	rep, err := runner.RunOnce(cmd.Context(), scheduler.Options{
		DryRun:    opts.dryRun,
		Quiet:     opts.quiet,
		Confirmer: &scheduler.PromptConfirmer{In: in, Out: out},
	})
	if err != nil {
		// deletions already happened and their reports were written
		if rep != nil && rep.Result != nil {
			printOutcome(out, rep)
		}
		return fmt.Errorf("cleanup failed: %w", err)
	}

	printOutcome(out, rep)

	if opts.failOnErrors && rep.Outcome == scheduler.OutcomePartial {
		return &exitError{
			code: exitcodes.PartialFailure,
			err:  fmt.Errorf("%d items failed to delete", len(rep.Result.Failed)),
		}
	}
	return nil
}

func printOutcome(w io.Writer, rep *scheduler.RunReport) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	switch rep.Outcome {
	case scheduler.OutcomeEmpty:
		fmt.Fprintln(w, "No items to delete.")
		return
	case scheduler.OutcomeCancelled:
		yellow.Fprintln(w, "Cleanup canceled by user.")
		return
	case scheduler.OutcomeDryRun:
		green.Fprintln(w, "Dry-run completed.")
		fmt.Fprintf(w, "Would delete %d files and %d directories (%s) in %s mode\n",
			rep.Plan.FileCount(), rep.Plan.DirCount(),
			humanize.IBytes(uint64(rep.Plan.TotalSizeBytes())), rep.Plan.Mode())
	case scheduler.OutcomeFailed:
		color.New(color.FgRed, color.Bold).Fprintln(w, "Cleanup finished with errors.")
		fmt.Fprintf(w, "Deleted %d files and %d directories, freed %s\n",
			rep.Result.DeletedFiles(), rep.Result.DeletedDirs(),
			humanize.IBytes(uint64(rep.Result.DeletedBytes())))
	default:
		green.Fprintln(w, "Cleanup completed.")
		fmt.Fprintf(w, "Deleted %d files and %d directories, freed %s\n",
			rep.Result.DeletedFiles(), rep.Result.DeletedDirs(),
			humanize.IBytes(uint64(rep.Result.DeletedBytes())))
		if rep.Result.HasFailures() {
			yellow.Fprintf(w, "%d items could not be deleted\n", len(rep.Result.Failed))
		}
	}

	if rep.Reports.Summary != "" {
		fmt.Fprintf(w, "Summary report: %s\n", rep.Reports.Summary)
	}
	if rep.Reports.Detail != "" {
		fmt.Fprintf(w, "Detail report: %s\n", rep.Reports.Detail)
	}
}
