package database

import (
	"log/slog"

	"xcleanup/internal/cleanup"
)

// AuditSink stores executor audit events as history rows of one run.
type AuditSink struct {
	db     *DeletionDB
	runID  string
	logger *slog.Logger
}

// Sink returns an audit sink tagging rows with runID. Write failures are
// logged and never interrupt the run.
func (d *DeletionDB) Sink(runID string, logger *slog.Logger) *AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditSink{db: d, runID: runID, logger: logger.With("component", "history")}
}

func (s *AuditSink) Record(ev cleanup.AuditEvent) {
	rec := DeletionRecord{
		Timestamp:  ev.Time,
		RunID:      s.runID,
		Action:     ActionDelete,
		Path:       ev.Item.Path,
		ObjectType: string(ev.Item.Type),
		Size:       ev.Item.SizeBytes,
		Mode:       string(ev.Mode),
	}
	if ev.Outcome == cleanup.OutcomeFailed {
		rec.Action = ActionError
		if ev.Err != nil {
			rec.ErrorMessage = ev.Err.Error()
		}
	}

	if err := s.db.RecordDeletion(rec); err != nil {
		s.logger.Warn("failed to record deletion history", "path", ev.Item.Path, "error", err)
	}
}
