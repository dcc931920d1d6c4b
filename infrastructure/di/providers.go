package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tablegrid/application/commands"
	"tablegrid/application/commands/bus"
	"tablegrid/application/ports"
	"tablegrid/application/queries"
	querybus "tablegrid/application/queries/bus"
	"tablegrid/application/services"
	"tablegrid/application/session"
	domain "tablegrid/domain/services"
	"tablegrid/infrastructure/config"
	"tablegrid/infrastructure/messaging/eventbridge"
	"tablegrid/infrastructure/persistence/dynamodb"
	"tablegrid/infrastructure/persistence/local"
	"tablegrid/infrastructure/persistence/resilience"
	"tablegrid/infrastructure/persistence/tracing"
	"tablegrid/pkg/auth"
	apperrors "tablegrid/pkg/errors"
	"tablegrid/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideTracing installs the OpenTelemetry provider
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration, instrumented with X-Ray when enabled
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.EnableXRay {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client, honoring DYNAMODB_ENDPOINT
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideTableStore selects the backing store and decorates it with the
// circuit breaker and tracing
func ProvideTableStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	tp *observability.TracerProvider,
	logger *zap.Logger,
) (ports.TableStore, func(), error) {
	var (
		store   ports.TableStore
		cleanup = func() {}
	)

	switch cfg.StoreDriver {
	case config.DriverLocal:
		badgerStore, err := local.NewBadgerStore(local.Options{
			Path:     cfg.LocalDBPath,
			PageSize: cfg.ScanPageSize,
			Logger:   logger.Named("badger"),
		})
		if err != nil {
			return nil, nil, err
		}
		store = badgerStore
		cleanup = func() {
			if err := badgerStore.Close(); err != nil {
				logger.Warn("Failed to close local store", zap.Error(err))
			}
		}
	default:
		store = dynamodb.NewTableStore(client, cfg.TableName, cfg.ScanPageSize, logger)
	}

	breakerCfg := resilience.DefaultBreakerConfig("tablestore:" + cfg.TableName)
	breakerCfg.Harmless = isRowLevelError
	store = resilience.NewBreakerStore(store, breakerCfg, logger)

	return tracing.NewTracedStore(store, tp.Tracer(), cfg.TableName), cleanup, nil
}

// isRowLevelError reports errors caused by one row's data rather than by the table
func isRowLevelError(err error) bool {
	switch dynamodb.ErrorCode(err) {
	case "ValidationException", "ConditionalCheckFailedException", "ItemCollectionSizeLimitExceededException":
		return true
	}
	return false
}

// ProvideInMemoryCache creates the process-local TTL cache
func ProvideInMemoryCache() (ports.Cache, func()) {
	cache := NewInMemoryCache()
	return cache, cache.Close
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("tablegrid")
}

// ProvideCloudWatchMetrics returns nil unless ENABLE_METRICS is set
func ProvideCloudWatchMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) *observability.CloudWatchMetrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("TableGrid/%s", cfg.Environment)
	return observability.NewCloudWatchMetrics(namespace, cfg.TableName, client, logger)
}

// ProvideMetrics fans measurements out to every enabled backend
func ProvideMetrics(collector *observability.Collector, cw *observability.CloudWatchMetrics) ports.Metrics {
	if cw == nil {
		return collector
	}
	return observability.Fanout{collector, cw}
}

// ProvideEventPublisher creates the EventBridge publisher, or a no-op one
// when no bus is configured
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NoopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideSessionStore keeps per-session snapshots in the cache
func ProvideSessionStore(cache ports.Cache, cfg *config.Config) *session.Store {
	return session.NewStore(cache, cfg.SessionTTL)
}

// ProvideReconciler creates the reconciler with the configured blank-row policy
func ProvideReconciler(cfg *config.Config) *domain.Reconciler {
	return domain.NewReconciler(cfg.BlankRowPolicy)
}

// ProvideSnapshotLoader creates the memoized table reader
func ProvideSnapshotLoader(
	store ports.TableStore,
	cache ports.Cache,
	cfg *config.Config,
	metrics ports.Metrics,
	logger *zap.Logger,
) *services.SnapshotLoader {
	return services.NewSnapshotLoader(store, cache, cfg.TableName, cfg.CacheTTL, metrics, logger)
}

// ProvideChangeApplier creates the change-set replayer
func ProvideChangeApplier(store ports.TableStore, metrics ports.Metrics, cfg *config.Config, logger *zap.Logger) *services.ChangeApplier {
	return services.NewChangeApplier(store, metrics, logger, cfg.UnsetRemovedColumns)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	store ports.TableStore,
	sessions *session.Store,
	reconciler *domain.Reconciler,
	applier *services.ChangeApplier,
	loader *services.SnapshotLoader,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))

	submit := commands.NewSubmitChangesHandler(sessions, reconciler, applier, loader, publisher, metrics, cfg.TableName, logger)
	if err := commandBus.Register(commands.SubmitChangesCommand{}, submit); err != nil {
		return nil, err
	}

	rows := commands.NewRowHandlers(store, loader, publisher, metrics, cfg.TableName, logger)
	if err := rows.Register(commandBus); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	loader *services.SnapshotLoader,
	sessions *session.Store,
	reconciler *domain.Reconciler,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger))

	if err := queryBus.Register(queries.LoadSnapshotQuery{}, queries.NewLoadSnapshotHandler(loader, sessions, logger)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.PreviewChangesQuery{}, queries.NewPreviewChangesHandler(sessions, reconciler)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvidePasswordGate loads the gate secret. With GATE_PASSWORD_FILE the file
// is watched and reloaded for the lifetime of the container.
func ProvidePasswordGate(cfg *config.Config, logger *zap.Logger) (*auth.PasswordGate, func(), error) {
	gate := auth.NewPasswordGate(cfg.GatePassword)
	if cfg.GatePasswordFile == "" {
		return gate, func() {}, nil
	}

	watcher, err := auth.NewSecretWatcher(cfg.GatePasswordFile, gate, logger)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)

	return gate, func() {
		cancel()
		_ = watcher.Close()
	}, nil
}

// ProvideSessionIssuer creates the session token issuer
func ProvideSessionIssuer(cfg *config.Config) *auth.SessionIssuer {
	return auth.NewSessionIssuer(cfg.SessionSecret, cfg.SessionTTL, cfg.ServiceName)
}

// ProvideLoginLimiter limits failed login attempts per client
func ProvideLoginLimiter(cfg *config.Config) auth.RateLimiter {
	return auth.NewLoginLimiter(cfg.LoginRatePerMinute)
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, !strings.EqualFold(cfg.Environment, "production"))
}
