package queries

import (
	"context"
	"errors"

	"tablegrid/application/queries/bus"
	"tablegrid/application/session"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"
	apperrors "tablegrid/pkg/errors"
)

// PreviewChangesQuery computes the change set a submit would apply, without writing
type PreviewChangesQuery struct {
	SessionID string
	Rows      entities.Snapshot
}

// Validate validates the PreviewChangesQuery
func (q PreviewChangesQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// ModifiedRow pairs a changed row with the columns that changed
type ModifiedRow struct {
	Row     entities.Row `json:"row"`
	Before  entities.Row `json:"before"`
	Columns []string     `json:"columns"`
}

// PreviewResult is the change set preview
type PreviewResult struct {
	Added    entities.Snapshot    `json:"added"`
	Deleted  entities.Snapshot    `json:"deleted"`
	Modified []ModifiedRow        `json:"modified"`
	Summary  domain.ChangeSummary `json:"summary"`
}

// NewPreviewResult renders a change set for display
func NewPreviewResult(cs domain.ChangeSet) *PreviewResult {
	modified := make([]ModifiedRow, 0, len(cs.Modified))
	for _, row := range cs.Modified {
		before := cs.Before[row.ID()]
		modified = append(modified, ModifiedRow{
			Row:     row,
			Before:  before,
			Columns: before.Diff(row),
		})
	}
	return &PreviewResult{
		Added:    cs.Added,
		Deleted:  cs.Deleted,
		Modified: modified,
		Summary:  cs.Summary(),
	}
}

// PreviewChangesHandler handles PreviewChangesQuery
type PreviewChangesHandler struct {
	sessions   *session.Store
	reconciler *domain.Reconciler
}

// NewPreviewChangesHandler creates a new handler instance
func NewPreviewChangesHandler(sessions *session.Store, reconciler *domain.Reconciler) *PreviewChangesHandler {
	return &PreviewChangesHandler{sessions: sessions, reconciler: reconciler}
}

// Handle executes the query
func (h *PreviewChangesHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(PreviewChangesQuery)

	state := h.sessions.Get(ctx, query.SessionID)
	if !state.Loaded() {
		return nil, apperrors.NewConflictError("no table snapshot loaded for this session; reload the grid")
	}

	working := domain.BackfillIDs(state.Original, query.Rows, nil)
	cs, err := h.reconciler.Reconcile(state.Original, working)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}
	return NewPreviewResult(cs), nil
}
