package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get for a missing or expired key.
var ErrNotFound = errors.New("key not found")

// Store defines the key-value storage behind sessions and dispatched orders.
// This allows us to swap between an in-process map and Redis.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists every key starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}
