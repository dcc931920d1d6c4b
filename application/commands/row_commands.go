package commands

import (
	"context"
	"time"

	"tablegrid/application/commands/bus"
	"tablegrid/application/ports"
	"tablegrid/application/services"
	"tablegrid/domain/core/entities"
	"tablegrid/domain/core/valueobjects"
	"tablegrid/domain/events"
	apperrors "tablegrid/pkg/errors"
	"tablegrid/pkg/utils"

	"go.uber.org/zap"
)

// AddRowCommand writes one new row with a generated id
type AddRowCommand struct {
	Values entities.Row `json:"values" validate:"required,columns"`
}

// Validate validates the AddRowCommand
func (c AddRowCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Values.IsBlank() {
		return apperrors.NewValidationError("at least one column must have a value")
	}
	return nil
}

// UpdateRowCommand sets columns on an existing row
type UpdateRowCommand struct {
	ID     string       `json:"id" validate:"required,notblank"`
	Values entities.Row `json:"values" validate:"required,min=1,columns"`
}

// Validate validates the UpdateRowCommand
func (c UpdateRowCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if len(c.Values.Attributes()) == 0 {
		return apperrors.NewValidationError("values must contain a column other than id")
	}
	return nil
}

// DeleteRowCommand removes a row
type DeleteRowCommand struct {
	ID string `json:"id" validate:"required,notblank"`
}

// Validate validates the DeleteRowCommand
func (c DeleteRowCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RowHandlers executes the single-row commands. Each one invalidates the scan cache.
type RowHandlers struct {
	store     ports.TableStore
	loader    *services.SnapshotLoader
	publisher ports.EventPublisher
	metrics   ports.Metrics
	table     string
	logger    *zap.Logger
}

// NewRowHandlers creates the single-row command handlers
func NewRowHandlers(
	store ports.TableStore,
	loader *services.SnapshotLoader,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	table string,
	logger *zap.Logger,
) *RowHandlers {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &RowHandlers{
		store:     store,
		loader:    loader,
		publisher: publisher,
		metrics:   metrics,
		table:     table,
		logger:    logger,
	}
}

// Register adds the three handlers to a command bus
func (h *RowHandlers) Register(b *bus.CommandBus) error {
	if err := b.Register(AddRowCommand{}, bus.CommandHandlerFunc(h.HandleAdd)); err != nil {
		return err
	}
	if err := b.Register(UpdateRowCommand{}, bus.CommandHandlerFunc(h.HandleUpdate)); err != nil {
		return err
	}
	return b.Register(DeleteRowCommand{}, bus.CommandHandlerFunc(h.HandleDelete))
}

// HandleAdd returns the written row
func (h *RowHandlers) HandleAdd(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd := c.(AddRowCommand)

	row := cmd.Values.Attributes().WithID(valueobjects.NewRowID())
	err := h.store.Put(ctx, row)
	if err := h.done(ctx, services.OpAdd, row.ID(), err); err != nil {
		return nil, err
	}
	return row, nil
}

// HandleUpdate applies a SET-only update
func (h *RowHandlers) HandleUpdate(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd := c.(UpdateRowCommand)

	set := cmd.Values.Attributes()
	err := h.store.Update(ctx, cmd.ID, set, nil)
	if err := h.done(ctx, services.OpModify, cmd.ID, err); err != nil {
		return nil, err
	}
	updated := set.Clone()
	updated[valueobjects.IDColumn] = cmd.ID
	return updated, nil
}

// HandleDelete removes the row
func (h *RowHandlers) HandleDelete(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd := c.(DeleteRowCommand)

	err := h.store.Delete(ctx, cmd.ID)
	if err := h.done(ctx, services.OpDelete, cmd.ID, err); err != nil {
		return nil, err
	}
	return cmd.ID, nil
}

func (h *RowHandlers) done(ctx context.Context, op, id string, err error) error {
	h.metrics.RecordRowOperation(op, err == nil)
	if err != nil {
		return services.StoreError(op, err).WithDetails(map[string]interface{}{"id": id})
	}

	h.loader.Invalidate(ctx)
	h.logger.Info("Row changed", zap.String("op", op), zap.String("rowID", id))

	if perr := h.publisher.Publish(ctx, events.NewRowChanged(h.table, id, op, time.Now())); perr != nil {
		h.logger.Warn("Failed to publish event", zap.String("eventType", events.TypeRowChanged), zap.Error(perr))
	}
	return nil
}
