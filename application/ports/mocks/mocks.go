// Package mocks provides testify mocks of the application ports.
package mocks

import (
	"context"
	"time"

	"tablegrid/domain/core/entities"
	"tablegrid/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockTableStore mocks ports.TableStore
type MockTableStore struct {
	mock.Mock
}

func (m *MockTableStore) Scan(ctx context.Context) (entities.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Snapshot), args.Error(1)
}

func (m *MockTableStore) Put(ctx context.Context, row entities.Row) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockTableStore) Update(ctx context.Context, id string, set entities.Row, remove []string) error {
	args := m.Called(ctx, id, set, remove)
	return args.Error(0)
}

func (m *MockTableStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockMetrics mocks ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordCacheHit(key string) {
	m.Called(key)
}

func (m *MockMetrics) RecordCacheMiss(key string) {
	m.Called(key)
}

func (m *MockMetrics) RecordRowOperation(op string, success bool) {
	m.Called(op, success)
}

func (m *MockMetrics) RecordSubmit(outcome string, duration time.Duration) {
	m.Called(outcome, duration)
}
