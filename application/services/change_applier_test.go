package services

import (
	"context"
	"errors"
	"testing"

	"tablegrid/application/ports/mocks"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestChangeApplier_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply deletes then adds then modifications", func(t *testing.T) {
		// Arrange
		store := new(mocks.MockTableStore)
		var order []string
		store.On("Delete", mock.Anything, "2").Return(nil).Run(func(mock.Arguments) { order = append(order, "delete") })
		store.On("Put", mock.Anything, entities.Row{"id": "3", "name": "C"}).Return(nil).Run(func(mock.Arguments) { order = append(order, "put") })
		store.On("Update", mock.Anything, "1", entities.Row{"name": "A2"}, []string(nil)).Return(nil).Run(func(mock.Arguments) { order = append(order, "update") })

		cs := domain.ChangeSet{
			Modified: entities.Snapshot{{"id": "1", "name": "A2"}},
			Added:    entities.Snapshot{{"id": "3", "name": "C"}},
			Deleted:  entities.Snapshot{{"id": "2", "name": "B"}},
			Before:   map[string]entities.Row{"1": {"id": "1", "name": "A"}},
		}
		applier := NewChangeApplier(store, nil, zap.NewNop(), false)

		// Act
		result := applier.Apply(ctx, cs)

		// Assert
		assert.True(t, result.OK())
		assert.Equal(t, []string{"delete", "put", "update"}, order)
		assert.Equal(t, []string{"2"}, result.Deleted)
		assert.Equal(t, []string{"3"}, result.Added)
		assert.Equal(t, []string{"1"}, result.Modified)
		store.AssertExpectations(t)
	})

	t.Run("Should itemize a single failure and keep going", func(t *testing.T) {
		// Arrange
		store := new(mocks.MockTableStore)
		metrics := new(mocks.MockMetrics)
		store.On("Put", mock.Anything, mock.Anything).Return(nil)
		store.On("Update", mock.Anything, "1", mock.Anything, mock.Anything).Return(errors.New("ConditionalCheckFailedException: boom"))
		store.On("Update", mock.Anything, "2", mock.Anything, mock.Anything).Return(nil)
		metrics.On("RecordRowOperation", OpAdd, true).Once()
		metrics.On("RecordRowOperation", OpModify, false).Once()
		metrics.On("RecordRowOperation", OpModify, true).Once()

		cs := domain.ChangeSet{
			Added:    entities.Snapshot{{"id": "9", "name": "new"}},
			Modified: entities.Snapshot{{"id": "1", "v": "x"}, {"id": "2", "v": "y"}},
		}
		applier := NewChangeApplier(store, metrics, zap.NewNop(), false)

		// Act
		result := applier.Apply(ctx, cs)

		// Assert
		assert.False(t, result.OK())
		assert.Equal(t, []Failure{{ID: "1", Op: OpModify, Message: "ConditionalCheckFailedException: boom"}}, result.Failures)
		assert.Equal(t, []string{"9"}, result.Added)
		assert.Equal(t, []string{"2"}, result.Modified)
		store.AssertExpectations(t)
		metrics.AssertExpectations(t)
	})

	t.Run("Should leave dropped columns alone by default", func(t *testing.T) {
		store := new(mocks.MockTableStore)
		store.On("Update", mock.Anything, "1", entities.Row{"name": "A"}, []string(nil)).Return(nil)

		cs := domain.ChangeSet{
			Modified: entities.Snapshot{{"id": "1", "name": "A"}},
			Before:   map[string]entities.Row{"1": {"id": "1", "name": "A", "old": "x"}},
		}

		result := NewChangeApplier(store, nil, nil, false).Apply(ctx, cs)

		assert.True(t, result.OK())
		store.AssertExpectations(t)
	})

	t.Run("Should remove dropped columns when enabled", func(t *testing.T) {
		store := new(mocks.MockTableStore)
		store.On("Update", mock.Anything, "1", entities.Row{"name": "A"}, []string{"old"}).Return(nil)

		cs := domain.ChangeSet{
			Modified: entities.Snapshot{{"id": "1", "name": "A"}},
			Before:   map[string]entities.Row{"1": {"id": "1", "name": "A", "old": "x"}},
		}

		result := NewChangeApplier(store, nil, nil, true).Apply(ctx, cs)

		assert.True(t, result.OK())
		store.AssertExpectations(t)
	})

	t.Run("Should treat an update with nothing to write as success", func(t *testing.T) {
		store := new(mocks.MockTableStore)

		cs := domain.ChangeSet{
			Modified: entities.Snapshot{{"id": "1"}},
			Before:   map[string]entities.Row{"1": {"id": "1", "old": "x"}},
		}

		result := NewChangeApplier(store, nil, nil, false).Apply(ctx, cs)

		assert.True(t, result.OK())
		assert.Equal(t, []string{"1"}, result.Modified)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should report failures on deletes", func(t *testing.T) {
		store := new(mocks.MockTableStore)
		store.On("Delete", mock.Anything, "1").Return(errors.New("throttled"))

		result := NewChangeApplier(store, nil, nil, false).Apply(ctx, domain.ChangeSet{
			Deleted: entities.Snapshot{{"id": "1"}},
		})

		assert.Len(t, result.Failures, 1)
		assert.Equal(t, OpDelete, result.Failures[0].Op)
		assert.Empty(t, result.Deleted)
		assert.Len(t, result.EventFailures(), 1)
	})
}
