package utils

import (
	"context"
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------

// Provider is one named alternative in a fallback chain.
type Provider[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// -----------------------------------------------------------------------------

// FirstSuccess evaluates providers in order and returns the first value
// produced without error, together with the winning provider's name. When
// every provider fails the joined errors are returned. A cancelled context
// stops the chain early.
func FirstSuccess[T any](ctx context.Context, providers []Provider[T]) (T, string, error) {
	var zero T
	if len(providers) == 0 {
		return zero, "", errors.New("empty provider chain")
	}

	errs := make([]error, 0, len(providers))
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v, err := p.Fetch(ctx)
		if err == nil {
			return v, p.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}

	return zero, "", errors.Join(errs...)
}
