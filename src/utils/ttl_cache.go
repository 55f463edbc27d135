package utils

import (
	"context"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------

// TTLCache holds one value with the time it was fetched. It is created by the
// caller and handed to its consumer so tests can build, inspect and reset it.
type TTLCache[T any] struct {
	TTL time.Duration
	Now func() time.Time

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
}

// -----------------------------------------------------------------------------

func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{TTL: ttl, Now: time.Now}
}

// -----------------------------------------------------------------------------

// Get returns the value if it is still inside the TTL window.
func (c *TTLCache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.Now().Sub(c.fetchedAt) >= c.TTL {
		var zero T
		return zero, false
	}
	return c.value, true
}

// -----------------------------------------------------------------------------

// Peek returns the cached value regardless of age.
func (c *TTLCache[T]) Peek() (T, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.fetchedAt, c.valid
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	c.fetchedAt = c.Now()
	c.valid = true
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Reset() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.fetchedAt = time.Time{}
	c.valid = false
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// GetOrLoad serves a fresh value or calls load. When load fails and an
// expired value exists, the expired value is served and stale is true.
func (c *TTLCache[T]) GetOrLoad(ctx context.Context, load func(ctx context.Context) (T, error)) (v T, stale bool, err error) {
	if v, ok := c.Get(); ok {
		return v, false, nil
	}

	fresh, err := load(ctx)
	if err == nil {
		c.Set(fresh)
		return fresh, false, nil
	}

	if old, _, ok := c.Peek(); ok {
		return old, true, nil
	}
	var zero T
	return zero, false, err
}
