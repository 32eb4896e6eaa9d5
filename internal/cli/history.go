package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xcleanup/internal/config"
	"xcleanup/internal/database"
)

type historyOptions struct {
	dbPath  string
	recent  int
	stats   bool
	days    int
	action  string
	path    string
	largest int
	runs    int
	runID   string
	since   string
	info    bool
	vacuum  bool
	json    bool
}

// NewHistoryCommand creates the 'xcleanup history' command
func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the deletion history database",
		Example: `  xcleanup history --recent 10           # 10 most recent deletions
  xcleanup history --stats --days 7       # statistics for the last week
  xcleanup history --action ERROR         # failed deletions only
  xcleanup history --path '/var/tmp/%'    # deletions below /var/tmp
  xcleanup history --largest 10           # 10 largest deletions
  xcleanup history --runs 5               # 5 most recent runs
  xcleanup history --run a1b2c3           # items of one run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "Path to history database (default: history.database_path from config)")
	f.IntVar(&opts.recent, "recent", 0, "Show N most recent deletions")
	f.BoolVar(&opts.stats, "stats", false, "Show deletion statistics")
	f.IntVar(&opts.days, "days", 30, "Number of days covered by --stats")
	f.StringVar(&opts.action, "action", "", "Filter by action (DELETE, ERROR)")
	f.StringVar(&opts.path, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	f.IntVar(&opts.largest, "largest", 0, "Show N largest deletions")
	f.IntVar(&opts.runs, "runs", 0, "Show N most recent runs")
	f.StringVar(&opts.runID, "run", "", "Show items of one run")
	f.StringVar(&opts.since, "since", "", "Show deletions since a date (YYYY-MM-DD)")
	f.BoolVar(&opts.info, "info", false, "Show database size and record counts")
	f.BoolVar(&opts.vacuum, "vacuum", false, "Compact the database")
	f.BoolVar(&opts.json, "json", false, "Output in JSON format")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *historyOptions) error {
	dbPath := opts.dbPath
	if dbPath == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbPath = cfg.History.DatabasePath
	}

	db, err := database.NewDeletionDB(dbPath)
	if err != nil {
		return fmt.Errorf("open history database %s: %w", dbPath, err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	switch {
	case opts.stats:
		stats, err := db.GetDeletionStats(opts.days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if opts.json {
			return writeJSON(out, stats)
		}
		printStats(out, stats, opts.days)
		return nil

	case opts.info:
		info, err := db.GetDatabaseStats()
		if err != nil {
			return fmt.Errorf("get database stats: %w", err)
		}
		if opts.json {
			return writeJSON(out, info)
		}
		fmt.Fprintf(out, "Database:  %s (%s)\n", dbPath, humanize.IBytes(uint64(info.SizeBytes)))
		fmt.Fprintf(out, "Records:   %d\n", info.TotalRecords)
		fmt.Fprintf(out, "Runs:      %d\n", info.TotalRuns)
		if info.TotalRecords > 0 {
			fmt.Fprintf(out, "Oldest:    %s\n", info.OldestRecord.Format(time.DateTime))
			fmt.Fprintf(out, "Newest:    %s\n", info.NewestRecord.Format(time.DateTime))
		}
		return nil

	case opts.vacuum:
		if err := db.Vacuum(); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintln(out, "Database compacted")
		return nil

	case opts.runs > 0:
		runs, err := db.GetRecentRuns(opts.runs)
		if err != nil {
			return fmt.Errorf("get recent runs: %w", err)
		}
		if opts.json {
			return writeJSON(out, runs)
		}
		printRuns(out, runs)
		return nil
	}

	var (
		records []database.DeletionRecord
		title   string
	)
	switch {
	case opts.recent > 0:
		records, err = db.GetRecentDeletions(opts.recent)
	case opts.runID != "":
		title = "Items of run " + opts.runID
		records, err = db.GetDeletionsByRun(opts.runID)
	case opts.action != "":
		title = "Records with action: " + opts.action
		records, err = db.GetDeletionsByAction(opts.action)
	case opts.path != "":
		title = "Deletions matching path pattern: " + opts.path
		records, err = db.GetDeletionsByPath(opts.path)
	case opts.largest > 0:
		title = fmt.Sprintf("Largest %d deletions:", opts.largest)
		records, err = db.GetLargestDeletions(opts.largest)
	case opts.since != "":
		start, perr := time.ParseInLocation(time.DateOnly, opts.since, time.Local)
		if perr != nil {
			return fmt.Errorf("%w: --since must be YYYY-MM-DD: %v", config.ErrInvalidConfig, perr)
		}
		title = "Deletions since " + opts.since
		records, err = db.GetDeletionsByDateRange(start, time.Now())
	default:
		return fmt.Errorf("%w: choose one of --recent, --stats, --runs, --run, --action, --path, --largest, --since, --info or --vacuum", config.ErrInvalidConfig)
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if opts.json {
		return writeJSON(out, records)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, stats *database.DeletionStats, days int) {
	fmt.Fprintf(w, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format(time.DateOnly), stats.EndDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(w, "Total Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Total Runs:       %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "Space Freed:      %s\n", humanize.IBytes(uint64(stats.TotalSpaceFreed)))

	if len(stats.ByMode) > 0 {
		fmt.Fprintln(w, "\nBy Mode:")
		for _, mode := range slices.Sorted(maps.Keys(stats.ByMode)) {
			fmt.Fprintf(w, "  %-15s %d\n", mode, stats.ByMode[mode])
		}
	}
	if len(stats.ByAction) > 0 {
		fmt.Fprintln(w, "\nBy Action:")
		for _, action := range slices.Sorted(maps.Keys(stats.ByAction)) {
			fmt.Fprintf(w, "  %-15s %d\n", action, stats.ByAction[action])
		}
	}
}

func printRecords(w io.Writer, records []database.DeletionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTimestamp\tRun\tAction\tType\tSize\tPath")
	fmt.Fprintln(tw, "--\t---------\t---\t------\t----\t----\t----")
	for _, r := range records {
		path := r.Path
		if r.ErrorMessage != "" {
			path += " (" + r.ErrorMessage + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format(time.DateTime), r.RunID, r.Action,
			r.ObjectType, humanize.IBytes(uint64(r.Size)), path)
	}
	_ = tw.Flush()
}

func printRuns(w io.Writer, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tStarted\tMode\tDry-run\tOutcome\tPlanned\tDeleted\tFailed\tFreed")
	fmt.Fprintln(tw, "---\t-------\t----\t-------\t-------\t-------\t-------\t------\t-----")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%d\t%d\t%d\t%s\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Mode, r.DryRun, r.Outcome,
			r.PlannedItems, r.DeletedItems, r.FailedItems, humanize.IBytes(uint64(r.BytesFreed)))
	}
	_ = tw.Flush()
}
