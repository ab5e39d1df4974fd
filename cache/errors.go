package cache

import "errors"

var (
	// ErrInvalidCacheDir indicates the cache directory path is empty.
	ErrInvalidCacheDir = errors.New("cache: invalid cache directory")

	// ErrCacheClosed indicates an operation on a closed cache.
	ErrCacheClosed = errors.New("cache: cache is closed")

	// ErrEntryNotFound indicates no entry exists for the given key.
	ErrEntryNotFound = errors.New("cache: entry not found")
)
