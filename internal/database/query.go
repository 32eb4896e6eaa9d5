package database

import (
	"database/sql"
	"time"
)

const deletionColumns = `
	SELECT id, timestamp, run_id, action, path, file_name, object_type, size,
	       mode, error_message, created_at
	FROM deletions
`

// GetRecentDeletions returns the N most recent deletion attempts
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetDeletionsByRun returns every attempt of one run in execution order
func (d *DeletionDB) GetDeletionsByRun(runID string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// GetDeletionsByDateRange returns deletions within a time range
func (d *DeletionDB) GetDeletionsByDateRange(start, end time.Time) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`, start.UTC(), end.UTC())
}

// GetDeletionsByPath returns deletions matching a LIKE pattern
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetDeletionsByAction returns deletions filtered by action type
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetLargestDeletions returns the N largest successful deletions by size
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetDeletionCountByAction returns count of attempts grouped by action
func (d *DeletionDB) GetDeletionCountByAction(since time.Time) (map[string]int, error) {
	return d.countBy("action", since)
}

// GetDeletionCountByMode returns count of successful deletions grouped by mode
func (d *DeletionDB) GetDeletionCountByMode(since time.Time) (map[string]int, error) {
	return d.countBy("mode", since)
}

// countBy groups rows newer than since by column, which must be a trusted
// identifier.
func (d *DeletionDB) countBy(column string, since time.Time) (map[string]int, error) {
	query := `SELECT ` + column + `, COUNT(*) FROM deletions WHERE timestamp >= ?`
	if column == "mode" {
		query += ` AND action = 'DELETE'`
	}
	query += ` GROUP BY ` + column

	rows, err := d.db.Query(query, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeletions  int
	TotalErrors     int
	TotalRuns       int
	TotalSpaceFreed int64
	ByMode          map[string]int
	ByAction        map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetDeletionStats returns comprehensive statistics for the last days
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM deletions
		WHERE timestamp >= ?
	`, since.UTC()).Scan(&stats.TotalDeletions, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE started_at >= ?`, since.UTC()).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	if stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now); err != nil {
		return nil, err
	}
	if stats.ByMode, err = d.GetDeletionCountByMode(since); err != nil {
		return nil, err
	}
	if stats.ByAction, err = d.GetDeletionCountByAction(since); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetRecentRuns returns the N most recent run summaries
func (d *DeletionDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	rows, err := d.db.Query(`
	SELECT run_id, started_at, finished_at, mode, dry_run, outcome,
	       planned_items, deleted_items, failed_items, bytes_freed, free_bytes_before
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.DryRun, &r.Outcome,
			&r.PlannedItems, &r.DeletedItems, &r.FailedItems, &r.BytesFreed, &r.FreeBytesBefore,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteOldRecords removes deletions and runs older than the given number of
// days and returns the number of deletion rows removed.
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UTC()

	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	if _, err := d.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryDeletions is a helper function to execute queries and scan results
func (d *DeletionDB) queryDeletions(query string, args ...any) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var errMsg sql.NullString
		var createdAt sql.NullTime

		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.RunID, &r.Action, &r.Path, &r.FileName,
			&r.ObjectType, &r.Size, &r.Mode, &errMsg, &createdAt,
		); err != nil {
			return nil, err
		}

		r.ErrorMessage = errMsg.String
		r.CreatedAt = createdAt.Time
		records = append(records, r)
	}
	return records, rows.Err()
}
