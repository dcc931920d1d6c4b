package services

import (
	"context"
	"errors"
	"time"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"
	apperrors "tablegrid/pkg/errors"

	"go.uber.org/zap"
)

// Loaded is a full read of the table and the time it was taken
type Loaded struct {
	Rows     entities.Snapshot
	LoadedAt time.Time
}

// SnapshotLoader reads the whole table through a TTL cache
type SnapshotLoader struct {
	store   ports.TableStore
	cache   ports.Cache
	ttl     int
	key     string
	metrics ports.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSnapshotLoader creates a loader caching scans of table for ttl
func NewSnapshotLoader(store ports.TableStore, cache ports.Cache, table string, ttl time.Duration, metrics ports.Metrics, logger *zap.Logger) *SnapshotLoader {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SnapshotLoader{
		store:   store,
		cache:   cache,
		ttl:     int(ttl.Seconds()),
		key:     "scan:" + table,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Load returns the table rows, from cache unless force is set.
// The returned snapshot is a private copy.
func (l *SnapshotLoader) Load(ctx context.Context, force bool) (Loaded, error) {
	if force {
		_ = l.cache.Delete(ctx, l.key)
	} else if v, ok := l.cache.Get(ctx, l.key); ok {
		if cached, ok := v.(Loaded); ok {
			l.metrics.RecordCacheHit(l.key)
			return Loaded{Rows: cached.Rows.Clone(), LoadedAt: cached.LoadedAt}, nil
		}
	}
	l.metrics.RecordCacheMiss(l.key)

	rows, err := l.store.Scan(ctx)
	if err != nil {
		return Loaded{}, StoreError("scan", err)
	}
	if rows == nil {
		rows = entities.Snapshot{}
	}

	loaded := Loaded{Rows: rows, LoadedAt: l.now()}
	if err := l.cache.Set(ctx, l.key, Loaded{Rows: rows.Clone(), LoadedAt: loaded.LoadedAt}, l.ttl); err != nil {
		l.logger.Warn("Failed to cache scan", zap.Error(err))
	}

	l.logger.Debug("Table scanned", zap.Int("rows", rows.Len()), zap.Bool("forced", force))
	return loaded, nil
}

// Invalidate drops the cached scan so the next Load reads the store
func (l *SnapshotLoader) Invalidate(ctx context.Context) {
	if err := l.cache.Delete(ctx, l.key); err != nil {
		l.logger.Warn("Failed to invalidate scan cache", zap.Error(err))
	}
}

// StoreError classifies a failed store call: UNAVAILABLE while the store
// refuses calls, DATABASE otherwise.
func StoreError(op string, err error) *apperrors.AppError {
	if errors.Is(err, ports.ErrStoreUnavailable) {
		return apperrors.NewUnavailableError("table store").WithCause(err)
	}
	return apperrors.NewDatabaseError(op, err)
}
