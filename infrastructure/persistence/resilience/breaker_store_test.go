package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"tablegrid/application/ports/mocks"
	"tablegrid/domain/core/entities"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errConditional = errors.New("ConditionalCheckFailedException")

func testConfig() BreakerConfig {
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	cfg.Harmless = func(err error) bool { return errors.Is(err, errConditional) }
	return cfg
}

func TestBreakerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should pass calls through while closed", func(t *testing.T) {
		next := new(mocks.MockTableStore)
		next.On("Scan", mock.Anything).Return(entities.Snapshot{{"id": "1"}}, nil)
		store := NewBreakerStore(next, testConfig(), zap.NewNop())

		rows, err := store.Scan(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, rows.IDs())
	})

	t.Run("Should fail fast once the store keeps failing", func(t *testing.T) {
		next := new(mocks.MockTableStore)
		next.On("Put", mock.Anything, mock.Anything).Return(errors.New("InternalServerError")).Times(3)
		store := NewBreakerStore(next, testConfig(), zap.NewNop())

		for i := 0; i < 3; i++ {
			assert.Error(t, store.Put(ctx, entities.Row{"id": "1"}))
		}
		err := store.Put(ctx, entities.Row{"id": "1"})

		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, gobreaker.StateOpen, store.State())
		next.AssertNumberOfCalls(t, "Put", 3)
	})

	t.Run("Should not trip on harmless row errors", func(t *testing.T) {
		next := new(mocks.MockTableStore)
		next.On("Update", mock.Anything, "1", mock.Anything, mock.Anything).Return(errConditional)
		store := NewBreakerStore(next, testConfig(), zap.NewNop())

		for i := 0; i < 5; i++ {
			assert.ErrorIs(t, store.Update(ctx, "1", entities.Row{"a": "b"}, nil), errConditional)
		}

		assert.Equal(t, gobreaker.StateClosed, store.State())
	})
}
