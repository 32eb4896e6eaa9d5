package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions stored in the deletions table.
const (
	ActionDelete = "DELETE"
	ActionError  = "ERROR"
)

// DeletionDB manages the SQLite database for deletion history
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord represents a single deletion attempt
type DeletionRecord struct {
	ID           int64
	Timestamp    time.Time
	RunID        string
	Action       string // DELETE or ERROR
	Path         string
	FileName     string
	ObjectType   string // file or dir
	Size         int64
	Mode         string // STANDARD or EMERGENCY
	ErrorMessage string
	CreatedAt    time.Time
}

// RunRecord summarises one cleanup invocation.
type RunRecord struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Mode            string
	DryRun          bool
	Outcome         string
	PlannedItems    int
	DeletedItems    int
	FailedItems     int
	BytesFreed      int64
	FreeBytesBefore int64
}

// NewDeletionDB creates a new database connection and initializes schema
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A real statement forces the file to be created
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL lets the history command read while a run writes
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return ddb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_run_id ON deletions(run_id);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_mode ON deletions(mode);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		mode TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		planned_items INTEGER NOT NULL,
		deleted_items INTEGER NOT NULL,
		failed_items INTEGER NOT NULL,
		bytes_freed INTEGER NOT NULL,
		free_bytes_before INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordDeletion inserts a deletion attempt. Timestamps are stored in UTC so
// range comparisons stay lexical.
func (d *DeletionDB) RecordDeletion(r DeletionRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	var errMsg sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := d.db.Exec(`
	INSERT INTO deletions (
		timestamp, run_id, action, path, file_name, object_type, size, mode, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Timestamp.UTC(),
		r.RunID,
		r.Action,
		r.Path,
		r.FileName,
		r.ObjectType,
		r.Size,
		r.Mode,
		errMsg,
	)
	return err
}

// RecordRun inserts or replaces the summary row of a run.
func (d *DeletionDB) RecordRun(r RunRecord) error {
	_, err := d.db.Exec(`
	INSERT OR REPLACE INTO runs (
		run_id, started_at, finished_at, mode, dry_run, outcome,
		planned_items, deleted_items, failed_items, bytes_freed, free_bytes_before
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.StartedAt.UTC(),
		r.FinishedAt.UTC(),
		r.Mode,
		r.DryRun,
		r.Outcome,
		r.PlannedItems,
		r.DeletedItems,
		r.FailedItems,
		r.BytesFreed,
		r.FreeBytesBefore,
	)
	return err
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// DatabaseStats describes the size and span of the history.
type DatabaseStats struct {
	TotalRecords int64
	TotalRuns    int64
	SizeBytes    int64
	OldestRecord time.Time
	NewestRecord time.Time
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&stats.TotalRecords); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = pageCount * pageSize

	// MIN/MAX lose the column type, so the driver hands back strings
	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	stats.OldestRecord = parseSQLiteTime(oldest)
	stats.NewestRecord = parseSQLiteTime(newest)

	return stats, nil
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseSQLiteTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t
		}
	}
	return time.Time{}
}
