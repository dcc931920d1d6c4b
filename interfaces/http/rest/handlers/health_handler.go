package handlers

import (
	"context"
	"net/http"
	"time"

	"tablegrid/pkg/common"

	"go.uber.org/zap"
)

// ReadinessProbe checks that the backing table can be read
type ReadinessProbe func(ctx context.Context) error

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	probe  ReadinessProbe
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(probe ReadinessProbe, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{probe: probe, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.probe(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
