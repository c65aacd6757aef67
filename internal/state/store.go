package state

import "context"

// Store is the narrow key/value surface the engine persists through. Values
// are opaque strings; records are JSON-encoded by their owners.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
