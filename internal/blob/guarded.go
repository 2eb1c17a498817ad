package blob

import (
	"context"
	"errors"

	"inspiranet/pkg/circuitbreaker"
)

// Deleter removes a blob by key.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// GuardedStore routes deletions through a circuit breaker so sweeps stop
// calling an unavailable store after repeated failures. A missing blob is
// passed back to the caller without counting as a failure.
type GuardedStore struct {
	next    Deleter
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedStore(next Deleter, breaker *circuitbreaker.CircuitBreaker) *GuardedStore {
	return &GuardedStore{next: next, breaker: breaker}
}

func (g *GuardedStore) Delete(ctx context.Context, key string) error {
	var missing error
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		err := g.next.Delete(ctx, key)
		if errors.Is(err, ErrNotFound) {
			missing = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return missing
}
