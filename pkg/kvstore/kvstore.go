package kvstore

import "context"

// Store is a JSON document store keyed by opaque string keys. Each key holds
// one encoded collection (a list of entities or a single entity), mirroring
// the per-collection namespaces the repositories own. Writes replace the
// whole value; readers of a missing key get found=false and no error.
type Store interface {
	// Get decodes the value at key into dest. Returns false when the key
	// does not exist, in which case dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set encodes value and stores it at key, replacing any prior value.
	Set(ctx context.Context, key string, value interface{}) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
