package commands

import (
	"context"
	"time"

	"tablegrid/application/commands/bus"
	"tablegrid/application/ports"
	"tablegrid/application/services"
	"tablegrid/application/session"
	"tablegrid/domain/core/entities"
	"tablegrid/domain/events"
	domain "tablegrid/domain/services"
	apperrors "tablegrid/pkg/errors"
	"tablegrid/pkg/utils"

	"go.uber.org/zap"
)

// Submit outcomes reported to metrics
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeNoChange = "no_change"
)

// SubmitChangesCommand replays the difference between a session's original
// snapshot and the submitted grid against the table
type SubmitChangesCommand struct {
	SessionID string            `json:"session_id" validate:"required,notblank"`
	Rows      entities.Snapshot `json:"rows" validate:"dive,columns"`
}

// Validate validates the SubmitChangesCommand
func (c SubmitChangesCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SubmitResult reports what the submit did
type SubmitResult struct {
	services.ApplyResult
	Success bool `json:"success"`

	// Set only when every row succeeded and the table was re-read
	Refreshed *Refreshed `json:"refreshed,omitempty"`
}

// Refreshed is the table as read after a successful submit
type Refreshed struct {
	Rows     entities.Snapshot `json:"rows"`
	Columns  []string          `json:"columns"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// SubmitChangesHandler handles SubmitChangesCommand
type SubmitChangesHandler struct {
	sessions   *session.Store
	reconciler *domain.Reconciler
	applier    *services.ChangeApplier
	loader     *services.SnapshotLoader
	publisher  ports.EventPublisher
	metrics    ports.Metrics
	table      string
	newID      domain.IDGenerator
	logger     *zap.Logger
}

// NewSubmitChangesHandler creates a new handler instance
func NewSubmitChangesHandler(
	sessions *session.Store,
	reconciler *domain.Reconciler,
	applier *services.ChangeApplier,
	loader *services.SnapshotLoader,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	table string,
	logger *zap.Logger,
) *SubmitChangesHandler {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SubmitChangesHandler{
		sessions:   sessions,
		reconciler: reconciler,
		applier:    applier,
		loader:     loader,
		publisher:  publisher,
		metrics:    metrics,
		table:      table,
		logger:     logger,
	}
}

// Handle executes the submit. One submit per session runs at a time.
func (h *SubmitChangesHandler) Handle(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd := c.(SubmitChangesCommand)
	start := time.Now()

	release := h.sessions.Lock(cmd.SessionID)
	defer release()

	state := h.sessions.Get(ctx, cmd.SessionID)
	if !state.Loaded() {
		return nil, apperrors.NewConflictError("no table snapshot loaded for this session; reload the grid")
	}

	working := domain.BackfillIDs(state.Original, cmd.Rows, h.newID)
	cs, err := h.reconciler.Reconcile(state.Original, working)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	if cs.Empty() {
		h.metrics.RecordSubmit(OutcomeNoChange, time.Since(start))
		return &SubmitResult{
			ApplyResult: services.ApplyResult{
				Deleted:  []string{},
				Added:    []string{},
				Modified: []string{},
				Failures: []services.Failure{},
			},
			Success: true,
		}, nil
	}

	result := h.applier.Apply(ctx, cs)
	h.publish(ctx, result)
	h.loader.Invalidate(ctx)

	out := &SubmitResult{ApplyResult: result, Success: result.OK()}
	if !result.OK() {
		// The table is now somewhere between original and working; keep the
		// original so the user can retry the remaining rows.
		h.metrics.RecordSubmit(OutcomePartial, time.Since(start))
		return out, nil
	}

	loaded, err := h.loader.Load(ctx, true)
	if err != nil {
		h.logger.Warn("Re-read after submit failed; session must reload",
			zap.String("sessionID", cmd.SessionID),
			zap.Error(err),
		)
		_ = h.sessions.Delete(ctx, cmd.SessionID)
	} else {
		if err := h.sessions.Save(ctx, cmd.SessionID, session.State{Original: loaded.Rows.Clone(), LoadedAt: loaded.LoadedAt}); err != nil {
			h.logger.Warn("Failed to save session state", zap.Error(err))
		}
		out.Refreshed = &Refreshed{
			Rows:     loaded.Rows,
			Columns:  loaded.Rows.Columns(),
			LoadedAt: loaded.LoadedAt,
		}
	}

	h.metrics.RecordSubmit(OutcomeSuccess, time.Since(start))
	return out, nil
}

func (h *SubmitChangesHandler) publish(ctx context.Context, result services.ApplyResult) {
	event := events.NewTableChangesApplied(h.table, result.Added, result.Deleted, result.Modified, result.EventFailures(), time.Now())
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}
