package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tablegrid/application/commands/bus"
	"tablegrid/application/ports"
	"tablegrid/application/ports/mocks"
	"tablegrid/application/services"
	"tablegrid/application/session"
	"tablegrid/domain/core/entities"
	"tablegrid/domain/events"
	domain "tablegrid/domain/services"
	apperrors "tablegrid/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]interface{})}
}

func (c *memCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]interface{})
	return nil
}

type fixture struct {
	store     *mocks.MockTableStore
	publisher *mocks.MockEventPublisher
	sessions  *session.Store
	handler   *SubmitChangesHandler
	rows      *RowHandlers
	bus       *bus.CommandBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	cache := newMemCache()

	f := &fixture{
		store:     new(mocks.MockTableStore),
		publisher: new(mocks.MockEventPublisher),
		sessions:  session.NewStore(cache, time.Hour),
	}
	loader := services.NewSnapshotLoader(f.store, cache, "items", time.Minute, nil, logger)
	applier := services.NewChangeApplier(f.store, nil, logger, false)
	f.handler = NewSubmitChangesHandler(f.sessions, domain.NewReconciler(domain.BlankRowsModify), applier, loader, f.publisher, nil, "items", logger)
	f.rows = NewRowHandlers(f.store, loader, f.publisher, nil, "items", logger)

	f.bus = bus.NewCommandBus()
	require.NoError(t, f.bus.Register(SubmitChangesCommand{}, f.handler))
	require.NoError(t, f.rows.Register(f.bus))
	return f
}

func (f *fixture) load(t *testing.T, sid string, rows entities.Snapshot) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), sid, session.State{Original: rows, LoadedAt: time.Now()}))
}

func TestSubmitChanges(t *testing.T) {
	ctx := context.Background()
	original := entities.Snapshot{{"id": "1", "name": "A", "value": "1"}}

	t.Run("Should require a loaded snapshot", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bus.Send(ctx, SubmitChangesCommand{SessionID: "s1", Rows: original})

		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("Should apply changes and replace the session original on success", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.load(t, "s1", original.Clone())
		fresh := entities.Snapshot{
			{"id": "1", "name": "A", "value": "2"},
			{"id": "generated", "name": "B", "value": "3"},
		}
		f.store.On("Update", mock.Anything, "1", entities.Row{"name": "A", "value": "2"}, []string(nil)).Return(nil).Once()
		f.store.On("Put", mock.Anything, mock.MatchedBy(func(r entities.Row) bool {
			return r.HasID() && r["name"] == "B"
		})).Return(nil).Once()
		f.store.On("Scan", mock.Anything).Return(fresh, nil).Once()
		f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
			applied, ok := e.(events.TableChangesApplied)
			return ok && applied.Succeeded() && applied.Table == "items"
		})).Return(nil).Once()

		working := entities.Snapshot{
			{"id": "1", "name": "A", "value": "2"},
			{"name": "B", "value": "3"},
		}

		// Act
		out, err := f.bus.Send(ctx, SubmitChangesCommand{SessionID: "s1", Rows: working})

		// Assert
		require.NoError(t, err)
		result := out.(*SubmitResult)
		assert.True(t, result.Success)
		assert.Len(t, result.Added, 1)
		assert.Equal(t, []string{"1"}, result.Modified)
		assert.Empty(t, result.Deleted)
		require.NotNil(t, result.Refreshed)
		assert.Equal(t, fresh, result.Refreshed.Rows)
		assert.Equal(t, fresh, f.sessions.Get(ctx, "s1").Original)
		f.store.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("Should keep the original after a partial failure", func(t *testing.T) {
		f := newFixture(t)
		f.load(t, "s1", original.Clone())
		f.store.On("Delete", mock.Anything, "1").Return(errors.New("AccessDeniedException"))
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

		out, err := f.bus.Send(ctx, SubmitChangesCommand{SessionID: "s1", Rows: entities.Snapshot{}})

		require.NoError(t, err)
		result := out.(*SubmitResult)
		assert.False(t, result.Success)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, services.Failure{ID: "1", Op: services.OpDelete, Message: "AccessDeniedException"}, result.Failures[0])
		assert.Nil(t, result.Refreshed)
		assert.Equal(t, original, f.sessions.Get(ctx, "s1").Original)
		f.store.AssertNotCalled(t, "Scan", mock.Anything)
	})

	t.Run("Should reject duplicate ids", func(t *testing.T) {
		f := newFixture(t)
		f.load(t, "s1", original.Clone())

		_, err := f.bus.Send(ctx, SubmitChangesCommand{SessionID: "s1", Rows: entities.Snapshot{
			{"id": "1", "name": "A"},
			{"id": "1", "name": "B"},
		}})

		assert.True(t, apperrors.IsValidation(err))
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Should write nothing when nothing changed", func(t *testing.T) {
		f := newFixture(t)
		f.load(t, "s1", original.Clone())

		out, err := f.bus.Send(ctx, SubmitChangesCommand{SessionID: "s1", Rows: original.Clone()})

		require.NoError(t, err)
		assert.True(t, out.(*SubmitResult).Success)
		f.store.AssertExpectations(t)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Should reject a missing session id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bus.Send(ctx, SubmitChangesCommand{})
		assert.ErrorIs(t, err, bus.ErrValidationFailed)
	})
}

func TestRowCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Should add a row with a generated id", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Put", mock.Anything, mock.MatchedBy(func(r entities.Row) bool {
			return r.HasID() && r["name"] == "A"
		})).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		out, err := f.bus.Send(ctx, AddRowCommand{Values: entities.Row{"id": "ignored", "name": "A"}})

		require.NoError(t, err)
		row := out.(entities.Row)
		assert.NotEqual(t, "ignored", row.ID())
		assert.True(t, row.HasID())
	})

	t.Run("Should refuse to add a blank row", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bus.Send(ctx, AddRowCommand{Values: entities.Row{"name": " "}})
		assert.Error(t, err)
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Should update with SET only", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Update", mock.Anything, "7", entities.Row{"value": "9"}, []string(nil)).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		out, err := f.bus.Send(ctx, UpdateRowCommand{ID: "7", Values: entities.Row{"value": "9"}})

		require.NoError(t, err)
		assert.Equal(t, entities.Row{"id": "7", "value": "9"}, out)
	})

	t.Run("Should surface store failures as database errors", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Delete", mock.Anything, "7").Return(errors.New("throttled"))

		_, err := f.bus.Send(ctx, DeleteRowCommand{ID: "7"})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
	t.Run("Should surface a refusing store as unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Update", mock.Anything, "7", mock.Anything, mock.Anything).Return(ports.ErrStoreUnavailable)

		_, err := f.bus.Send(ctx, UpdateRowCommand{ID: "7", Values: entities.Row{"value": "9"}})

		assert.True(t, apperrors.IsUnavailable(err))
		assert.Equal(t, "7", apperrors.GetAppError(err).Details["id"])
	})
}
