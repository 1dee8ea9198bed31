// Package storage provides the key/value store used for credentials and
// small client state. Two implementations exist: a persistent SQLite-backed
// store that is always available, and an adapter over the chat host's
// callback-style secure storage.
package storage

import (
	"context"

	"fingram/internal/log"
)

// Store is the uniform contract. Get resolves ("", false, nil) for a missing
// key; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Select picks the host secure store only once the environment is confirmed
// embedded and the capability object is present. Any failure constructing or
// probing the host store falls back to the persistent store; selection never
// fails.
func Select(embedded bool, secure HostSecureStorage, fallback Store, logger *log.Logger) (selected Store) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Warn("host secure storage unusable, falling back to persistent store", "panic", r)
			}
			selected = fallback
		}
	}()

	if !embedded || secure == nil {
		return fallback
	}
	return NewHostStore(secure)
}
