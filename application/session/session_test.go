package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tablegrid/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]interface{})}
}

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *mapCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]interface{})
	return nil
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()

	t.Run("Should return the zero state for unknown sessions", func(t *testing.T) {
		s := NewStore(cache, time.Hour)
		state := s.Get(ctx, "nope")
		assert.False(t, state.Loaded())
		assert.Nil(t, state.Original)
	})

	t.Run("Should round trip a state", func(t *testing.T) {
		s := NewStore(cache, time.Hour)
		want := State{Original: entities.Snapshot{{"id": "1"}}, LoadedAt: time.Now()}

		require.NoError(t, s.Save(ctx, "sid", want))
		assert.Equal(t, want, s.Get(ctx, "sid"))

		require.NoError(t, s.Delete(ctx, "sid"))
		assert.False(t, s.Get(ctx, "sid").Loaded())
	})

	t.Run("Should serialize work within one session", func(t *testing.T) {
		s := NewStore(cache, time.Hour)
		var inside, maxInside int32
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release := s.Lock("same")
				defer release()

				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside)
		s.mu.Lock()
		defer s.mu.Unlock()
		assert.Empty(t, s.locks)
	})
}
