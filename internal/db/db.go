package db

import (
	"context"
	"time"
)

// Store is everything simdex keeps in its key space: descriptor and asset
// blobs under item/asset keys, and revisioned weight hashes.
type Store interface {
	Pinger
	KVStore
	RevisionStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds opaque blobs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMulti returns values in key order; missing keys yield nil entries.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Del removes keys; absent keys are ignored.
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Scan lists keys matching a glob pattern. Order is driver specific.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RevisionStore keeps hashes whose RevisionField only ever grows.
type RevisionStore interface {
	// HGetAll returns all fields of a hash; a missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// CompareAndSwap writes fields and bumps the revision only if the stored
	// revision equals expected (a missing key has revision 0). A negative
	// expected writes unconditionally. Returns the new revision, or a
	// *RevisionMismatchError.
	CompareAndSwap(ctx context.Context, key string, expected int64, fields map[string]string) (int64, error)
}
