package ports

import (
	"context"
	"errors"
	"time"

	"tablegrid/domain/core/entities"
	"tablegrid/domain/events"
)

// ErrStoreUnavailable is returned by a TableStore that refuses calls while the
// backing store is considered down
var ErrStoreUnavailable = errors.New("table store unavailable: too many recent failures")

// TableStore is the backing store of the edited table.
// This is a port in hexagonal architecture - the application doesn't know about the implementation
type TableStore interface {
	// Scan reads every row, following pagination cursors until exhausted
	Scan(ctx context.Context) (entities.Snapshot, error)

	// Put writes a full row keyed by its id, replacing any existing row
	Put(ctx context.Context, row entities.Row) error

	// Update sets the given columns and removes the listed ones on the row with id
	Update(ctx context.Context, id string, set entities.Row, remove []string) error

	// Delete removes the row with id; deleting an absent row is not an error
	Delete(ctx context.Context, id string) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish publishes a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch publishes multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Metrics records application level measurements
type Metrics interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordRowOperation(op string, success bool)
	RecordSubmit(outcome string, duration time.Duration)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordCacheHit(string)              {}
func (NoopMetrics) RecordCacheMiss(string)             {}
func (NoopMetrics) RecordRowOperation(string, bool)    {}
func (NoopMetrics) RecordSubmit(string, time.Duration) {}
