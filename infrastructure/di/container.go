package di

import (
	"tablegrid/application/commands/bus"
	"tablegrid/application/ports"
	querybus "tablegrid/application/queries/bus"
	"tablegrid/application/services"
	"tablegrid/application/session"
	"tablegrid/infrastructure/config"
	"tablegrid/pkg/auth"
	apperrors "tablegrid/pkg/errors"
	"tablegrid/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        ports.TableStore
	Cache        ports.Cache
	Loader       *services.SnapshotLoader
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Sessions     *session.Store
	Gate         *auth.PasswordGate
	Issuer       *auth.SessionIssuer
	LoginLimiter auth.RateLimiter
	Collector    *observability.Collector
	CloudWatch   *observability.CloudWatchMetrics // nil unless ENABLE_METRICS
	Tracing      *observability.TracerProvider
	ErrorHandler *apperrors.ErrorHandler
}
