// Package cache memoizes converter results in a content-addressed store.
//
// A Store holds opaque byte values; Memory, Badger and Redis implement it. A
// Cache sits on top of a Store and provides GetOrCompute, which runs a
// computation once per key and replays its stored result afterwards, and
// Clear, which turns every key back into a miss.
package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when the key does not exist.
var ErrNotFound = errors.New("cache: not found")

// Store is a flat key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
