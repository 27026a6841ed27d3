package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVItem holds a single key+value pair for multi-key writes.
type KVItem struct {
	Key   string
	Value []byte
}

// KVStore reads and writes groups of keys.
//
// GetMulti returns one entry per key in order; missing keys yield nil.
// SetMulti writes all items atomically.
type KVStore interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []KVItem) error
}
