package ports

import (
	"context"
)

// KVStore is the backing key/value store shared by every owner-scoped service.
// Each collection holds one JSON-serializable value, typically a map keyed by
// character id. Callers read the whole collection, mutate it and write it back.
type KVStore interface {
	// Read decodes the collection into dst.
	// It returns false (and leaves dst untouched) if the collection was never written.
	Read(ctx context.Context, collection string, dst any) (bool, error)

	// Write replaces the whole collection with value.
	Write(ctx context.Context, collection string, value any) error

	// GetBlob retrieves a binary blob.
	// Returns domain.ErrNotFound if the key does not exist.
	GetBlob(ctx context.Context, key string) ([]byte, error)

	// SetBlob stores a binary blob under key.
	SetBlob(ctx context.Context, key string, data []byte) error

	// DeleteBlob removes a blob. Deleting a missing key is not an error.
	DeleteBlob(ctx context.Context, key string) error
}
