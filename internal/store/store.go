// Package store provides the persistent key-value collaborator used by the
// approval gate to survive process restarts. Three implementations are
// provided: a file-backed store with atomic writes and cross-process
// locking (the default), a Redis-backed store for shared deployments, and
// an in-memory store for tests.
package store

import "errors"

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("key not found")

// Store is a minimal persistent key-value interface. Values are opaque
// byte slices; callers own the serialization format.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set writes the value for key, overwriting any existing value.
	Set(key string, value []byte) error

	// Delete removes the value for key. Deleting an absent key is not
	// an error.
	Delete(key string) error
}
