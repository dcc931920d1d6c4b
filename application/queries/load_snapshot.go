package queries

import (
	"context"
	"errors"
	"time"

	"tablegrid/application/queries/bus"
	"tablegrid/application/services"
	"tablegrid/application/session"
	"tablegrid/domain/core/entities"

	"go.uber.org/zap"
)

// LoadSnapshotQuery reads the table for a session and makes the read the
// session's original snapshot
type LoadSnapshotQuery struct {
	SessionID string
	Force     bool
}

// Validate validates the LoadSnapshotQuery
func (q LoadSnapshotQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// SnapshotResult is the grid payload
type SnapshotResult struct {
	Rows     entities.Snapshot `json:"rows"`
	Columns  []string          `json:"columns"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// NewSnapshotResult builds the grid payload for rows
func NewSnapshotResult(rows entities.Snapshot, loadedAt time.Time) *SnapshotResult {
	return &SnapshotResult{
		Rows:     rows,
		Columns:  rows.Columns(),
		LoadedAt: loadedAt,
	}
}

// LoadSnapshotHandler handles LoadSnapshotQuery
type LoadSnapshotHandler struct {
	loader   *services.SnapshotLoader
	sessions *session.Store
	logger   *zap.Logger
}

// NewLoadSnapshotHandler creates a new handler instance
func NewLoadSnapshotHandler(loader *services.SnapshotLoader, sessions *session.Store, logger *zap.Logger) *LoadSnapshotHandler {
	return &LoadSnapshotHandler{
		loader:   loader,
		sessions: sessions,
		logger:   logger,
	}
}

// Handle executes the query
func (h *LoadSnapshotHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(LoadSnapshotQuery)

	loaded, err := h.loader.Load(ctx, query.Force)
	if err != nil {
		return nil, err
	}

	state := session.State{Original: loaded.Rows.Clone(), LoadedAt: loaded.LoadedAt}
	if err := h.sessions.Save(ctx, query.SessionID, state); err != nil {
		h.logger.Warn("Failed to save session state",
			zap.String("sessionID", query.SessionID),
			zap.Error(err),
		)
	}

	return NewSnapshotResult(loaded.Rows, loaded.LoadedAt), nil
}
