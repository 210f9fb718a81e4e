// Package db is the durable key-value layer everything else persists through:
// the bounded media history, runtime settings and cached Twitch credentials.
package db

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	// Get returns ErrNotFound when the key has never been set
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMany only includes keys that exist
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
