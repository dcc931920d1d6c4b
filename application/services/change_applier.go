package services

import (
	"context"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"
	"tablegrid/domain/events"
	domain "tablegrid/domain/services"

	"go.uber.org/zap"
)

// Row operation names used in results, metrics and events
const (
	OpDelete = "delete"
	OpAdd    = "add"
	OpModify = "modify"
)

// Failure is one row operation the backing store rejected
type Failure struct {
	ID      string `json:"id"`
	Op      string `json:"op"`
	Message string `json:"message"`
}

// ApplyResult itemizes what happened to every row of a change set
type ApplyResult struct {
	Deleted  []string  `json:"deleted"`
	Added    []string  `json:"added"`
	Modified []string  `json:"modified"`
	Failures []Failure `json:"failures"`
}

// OK reports whether every row operation succeeded
func (r ApplyResult) OK() bool {
	return len(r.Failures) == 0
}

// EventFailures converts the failures for a TableChangesApplied event
func (r ApplyResult) EventFailures() []events.RowFailure {
	if len(r.Failures) == 0 {
		return nil
	}
	out := make([]events.RowFailure, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = events.RowFailure{ID: f.ID, Op: f.Op, Message: f.Message}
	}
	return out
}

// ChangeApplier replays a change set against the backing store.
// Rows are applied independently; there is no rollback.
type ChangeApplier struct {
	store               ports.TableStore
	metrics             ports.Metrics
	logger              *zap.Logger
	unsetRemovedColumns bool
}

// NewChangeApplier creates a new change applier
func NewChangeApplier(store ports.TableStore, metrics ports.Metrics, logger *zap.Logger, unsetRemovedColumns bool) *ChangeApplier {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeApplier{
		store:               store,
		metrics:             metrics,
		logger:              logger,
		unsetRemovedColumns: unsetRemovedColumns,
	}
}

// Apply runs deletes, then adds, then modifications
func (a *ChangeApplier) Apply(ctx context.Context, cs domain.ChangeSet) ApplyResult {
	result := ApplyResult{
		Deleted:  []string{},
		Added:    []string{},
		Modified: []string{},
		Failures: []Failure{},
	}

	for _, row := range cs.Deleted {
		id := row.ID()
		a.record(&result, OpDelete, id, a.store.Delete(ctx, id), &result.Deleted)
	}

	for _, row := range cs.Added {
		a.record(&result, OpAdd, row.ID(), a.store.Put(ctx, row), &result.Added)
	}

	for _, row := range cs.Modified {
		id := row.ID()
		set, remove := a.updateFor(row, cs.Before[id])
		var err error
		if len(set) > 0 || len(remove) > 0 {
			err = a.store.Update(ctx, id, set, remove)
		}
		a.record(&result, OpModify, id, err, &result.Modified)
	}

	a.logger.Info("Change set applied",
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("added", len(result.Added)),
		zap.Int("modified", len(result.Modified)),
		zap.Int("failures", len(result.Failures)),
	)
	return result
}

func (a *ChangeApplier) updateFor(row, before entities.Row) (entities.Row, []string) {
	set := row.Attributes()
	if !a.unsetRemovedColumns || before == nil {
		return set, nil
	}
	return set, before.MissingFrom(row)
}

func (a *ChangeApplier) record(result *ApplyResult, op, id string, err error, done *[]string) {
	a.metrics.RecordRowOperation(op, err == nil)
	if err != nil {
		a.logger.Warn("Row operation failed",
			zap.String("op", op),
			zap.String("rowID", id),
			zap.Error(err),
		)
		result.Failures = append(result.Failures, Failure{ID: id, Op: op, Message: err.Error()})
		return
	}
	*done = append(*done, id)
}
