// Package metadata is the client's key-value store: a single SQLite table
// standing in for browser local storage. Tokens and the cached user
// profile live here under the keys declared in package common.
package metadata

import (
	"context"
)

// Repository reads and writes opaque values by key. Get returns (nil, nil)
// for an absent key. Delete takes several keys so a session can be torn
// down in one statement.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
