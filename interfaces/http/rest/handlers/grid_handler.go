package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tablegrid/application/commands"
	"tablegrid/application/commands/bus"
	"tablegrid/application/queries"
	querybus "tablegrid/application/queries/bus"
	"tablegrid/application/services"
	"tablegrid/domain/core/entities"
	"tablegrid/pkg/auth"
	"tablegrid/pkg/common"
	apperrors "tablegrid/pkg/errors"
	"tablegrid/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GridHandler serves the grid page and its JSON API
type GridHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	table      string
	logger     *zap.Logger
}

// NewGridHandler creates a new grid handler
func NewGridHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *apperrors.ErrorHandler,
	table string,
	logger *zap.Logger,
) *GridHandler {
	return &GridHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		table:      table,
		logger:     logger,
	}
}

// RowsRequest is the body of diff and submit
type RowsRequest struct {
	Rows entities.Snapshot `json:"rows" validate:"required,dive,columns"`
}

// ValuesRequest is the body of the single-row add and update
type ValuesRequest struct {
	Values entities.Row `json:"values" validate:"required"`
}

// SubmitResponse is the itemized result of a submit. Rows, Columns and
// LoadedAt are present only when the table was re-read.
type SubmitResponse struct {
	Success  bool               `json:"success"`
	Added    []string           `json:"added"`
	Deleted  []string           `json:"deleted"`
	Modified []string           `json:"modified"`
	Failures []services.Failure `json:"failures"`
	Rows     entities.Snapshot  `json:"rows,omitempty"`
	Columns  []string           `json:"columns,omitempty"`
	LoadedAt *time.Time         `json:"loaded_at,omitempty"`
}

// Page handles GET /
func (h *GridHandler) Page(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, "grid.html", gridPage{Table: h.table})
}

// Rows handles GET /api/rows
func (h *GridHandler) Rows(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	h.load(w, r, force)
}

// Refresh handles POST /api/refresh
func (h *GridHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.load(w, r, true)
}

func (h *GridHandler) load(w http.ResponseWriter, r *http.Request, force bool) {
	result, err := h.queryBus.Ask(r.Context(), queries.LoadSnapshotQuery{
		SessionID: sessionID(r),
		Force:     force,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Diff handles POST /api/diff
func (h *GridHandler) Diff(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.PreviewChangesQuery{
		SessionID: sessionID(r),
		Rows:      req.Rows,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Submit handles POST /api/submit
func (h *GridHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.commandBus.Send(r.Context(), commands.SubmitChangesCommand{
		SessionID: sessionID(r),
		Rows:      req.Rows,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := out.(*commands.SubmitResult)
	resp := SubmitResponse{
		Success:  result.Success,
		Added:    nonNil(result.Added),
		Deleted:  nonNil(result.Deleted),
		Modified: nonNil(result.Modified),
		Failures: result.Failures,
	}
	if resp.Failures == nil {
		resp.Failures = []services.Failure{}
	}
	if result.Refreshed != nil {
		resp.Rows = result.Refreshed.Rows
		resp.Columns = result.Refreshed.Columns
		resp.LoadedAt = &result.Refreshed.LoadedAt
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// AddRow handles POST /api/rows
func (h *GridHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	var req ValuesRequest
	if !h.decode(w, r, &req) {
		return
	}

	row, err := h.commandBus.Send(r.Context(), commands.AddRowCommand{Values: req.Values})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{"row": row})
}

// UpdateRow handles PUT /api/rows/{id}
func (h *GridHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req ValuesRequest
	if !h.decode(w, r, &req) {
		return
	}

	row, err := h.commandBus.Send(r.Context(), commands.UpdateRowCommand{
		ID:     chi.URLParam(r, "id"),
		Values: req.Values,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"row": row})
}

// DeleteRow handles DELETE /api/rows/{id}
func (h *GridHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := h.commandBus.Send(r.Context(), commands.DeleteRowCommand{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *GridHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, common.MaxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return false
	}
	return true
}

// fail renders bus errors. Validation failures that are not AppErrors
// (validator output) become VALIDATION instead of INTERNAL.
func (h *GridHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.GetAppError(err) == nil &&
		(errors.Is(err, bus.ErrValidationFailed) || errors.Is(err, querybus.ErrValidationFailed)) {
		err = apperrors.NewValidationError(err.Error()).WithCause(err)
	}
	h.errors.Handle(w, r, err)
}

func sessionID(r *http.Request) string {
	if claims, ok := auth.SessionFromContext(r.Context()); ok {
		return claims.SessionID
	}
	return ""
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
