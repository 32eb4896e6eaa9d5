package cleanup

import (
	"fmt"
	"log/slog"
	"time"

	"xcleanup/internal/fsops"
	"xcleanup/internal/safety"
	"xcleanup/internal/state"
)

// Executor carries out a plan exactly once per item.
type Executor struct {
	store     *state.Store
	audit     AuditSink
	deleter   fsops.Deleter
	validator *safety.Validator
	metrics   Metrics
	now       func() time.Time
}

// NewExecutor wires an executor. audit may be nil.
func NewExecutor(store *state.Store, audit AuditSink) *Executor {
	if audit == nil {
		audit = discardAudit{}
	}
	return &Executor{
		store:   store,
		audit:   audit,
		deleter: fsops.OSDeleter{},
		metrics: newPromMetrics(),
		now:     time.Now,
	}
}

// SetDeleter replaces the filesystem deleter (tests use fsops.FakeDeleter).
func (e *Executor) SetDeleter(d fsops.Deleter) { e.deleter = d }

// SetValidator installs the safety gate consulted before every removal.
func (e *Executor) SetValidator(v *safety.Validator) { e.validator = v }

// SetMetrics replaces the metrics sink.
func (e *Executor) SetMetrics(m Metrics) { e.metrics = m }

// Execute removes plan items in order. Per-item failures land in the result;
// the returned error is reserved for ledger persistence failures, in which
// case the partial result is still returned.
func (e *Executor) Execute(plan *Plan) (*Result, error) {
	result := &Result{}
	if plan == nil {
		return result, nil
	}
	mode := plan.Mode()

	for _, item := range plan.items {
		if err := e.remove(item); err != nil {
			result.Failed = append(result.Failed, Failure{Item: item, Err: err})
			e.metrics.Failed(item)
			e.audit.Record(AuditEvent{
				Time:    e.now(),
				Level:   slog.LevelError,
				Message: "Failed to delete",
				Item:    item,
				Outcome: OutcomeFailed,
				Mode:    mode,
				Err:     err,
			})
			continue
		}

		result.Deleted = append(result.Deleted, item)
		e.metrics.Deleted(item)
		e.audit.Record(AuditEvent{
			Time:    e.now(),
			Level:   slog.LevelInfo,
			Message: "Deleted",
			Item:    item,
			Outcome: OutcomeDeleted,
			Mode:    mode,
		})
	}

	if len(result.Deleted) == 0 || e.store == nil {
		return result, nil
	}

	paths := make([]string, len(result.Deleted))
	for i, it := range result.Deleted {
		paths[i] = it.Path
	}
	if err := e.store.RecordDeleted(paths...); err != nil {
		return result, fmt.Errorf("record deleted items: %w", err)
	}
	return result, nil
}

func (e *Executor) remove(item Item) error {
	if e.validator != nil {
		if err := e.validator.ValidateDeleteTarget(item.Path); err != nil {
			return fmt.Errorf("safety check %s: %w", item.Path, err)
		}
	}

	if item.IsDir() && !fsops.IsEmptyDir(item.Path) {
		return fmt.Errorf("%s: %w", item.Path, ErrDirectoryNotEmpty)
	}

	if err := e.deleter.Remove(item.Path); err != nil {
		return err
	}
	return nil
}
