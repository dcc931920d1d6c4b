package resilience

import (
	"context"
	"errors"
	"time"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned without calling the store while the breaker is open
var ErrStoreUnavailable = ports.ErrStoreUnavailable

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	FailureThreshold float64
	MinRequests      uint32

	// Harmless reports errors that say nothing about store health, such as
	// a failed condition on one row. They do not count as failures.
	Harmless func(error) bool
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerStore wraps a TableStore with a circuit breaker. Calls are never retried.
type BreakerStore struct {
	next ports.TableStore
	cb   *gobreaker.CircuitBreaker
}

var _ ports.TableStore = (*BreakerStore)(nil)

// NewBreakerStore creates the decorator
func NewBreakerStore(next ports.TableStore, config BreakerConfig, logger *zap.Logger) *BreakerStore {
	harmless := config.Harmless
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return harmless != nil && harmless(err)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

// State exposes the breaker state for readiness checks
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) call(fn func() (interface{}, error)) (interface{}, error) {
	out, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrStoreUnavailable
	}
	return out, err
}

func (s *BreakerStore) Scan(ctx context.Context) (entities.Snapshot, error) {
	out, err := s.call(func() (interface{}, error) {
		return s.next.Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(entities.Snapshot), nil
}

func (s *BreakerStore) Put(ctx context.Context, row entities.Row) error {
	_, err := s.call(func() (interface{}, error) {
		return nil, s.next.Put(ctx, row)
	})
	return err
}

func (s *BreakerStore) Update(ctx context.Context, id string, set entities.Row, remove []string) error {
	_, err := s.call(func() (interface{}, error) {
		return nil, s.next.Update(ctx, id, set, remove)
	})
	return err
}

func (s *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := s.call(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, id)
	})
	return err
}
