package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Outcome classifies an audited deletion attempt.
type Outcome string

const (
	OutcomeDeleted Outcome = "deleted"
	OutcomeFailed  Outcome = "failed"
)

// AuditEvent describes what happened to one plan item.
type AuditEvent struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Item    Item
	Outcome Outcome
	Mode    Mode
	Err     error // nil unless Outcome is OutcomeFailed
}

// AuditSink receives one event per executed plan item. Implementations own
// their own error handling; a sink must never abort execution.
type AuditSink interface {
	Record(AuditEvent)
}

// LogAudit writes audit events to a structured logger.
type LogAudit struct {
	Logger *slog.Logger
}

func (a LogAudit) Record(ev AuditEvent) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("path", ev.Item.Path),
		slog.String("type", string(ev.Item.Type)),
		slog.Int64("size", ev.Item.SizeBytes),
		slog.String("mode", string(ev.Mode)),
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}
	logger.LogAttrs(context.Background(), ev.Level, ev.Message, attrs...)
}

// MultiAudit fans an event out to several sinks in order.
type MultiAudit []AuditSink

func (m MultiAudit) Record(ev AuditEvent) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

// discardAudit is used when no sink is configured.
type discardAudit struct{}

func (discardAudit) Record(AuditEvent) {}
