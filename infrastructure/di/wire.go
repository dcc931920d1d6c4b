//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"tablegrid/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideTableStore,
	ProvideInMemoryCache,
	ProvideCollector,
	ProvideCloudWatchMetrics,
	ProvideMetrics,
	ProvideEventPublisher,
	ProvideSessionStore,
	ProvideReconciler,
	ProvideSnapshotLoader,
	ProvideChangeApplier,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvidePasswordGate,
	ProvideSessionIssuer,
	ProvideLoginLimiter,
	ProvideErrorHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
