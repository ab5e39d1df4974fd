package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"

	"github.com/cachelockorg/libcachelock-go/lock"
)

// indexFileName is the bbolt database holding the cache index, stored
// inside the cache directory next to the lock file.
const indexFileName = "index.db"

// formatVersion is bumped when the index layout changes; a mismatch forces
// a rebuild on open.
const formatVersion byte = 1

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
	keyVersion    = []byte("version")
)

// Cache is a persistent directory cache coordinated across processes by
// the lock manager. Open holds an exclusive lock session for the cache
// lifetime; if the previous holder crashed mid-write, the index is rebuilt
// from scratch before any entry is served.
type Cache struct {
	dir     string
	db      *bbolt.DB
	session *lock.Session
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger installs the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Open creates or opens the cache at dir, guarding it with an exclusive
// session from manager. A dirty cache (previous writer did not unlock
// cleanly) is wiped and rebuilt inside a write-cycle, so the rebuild itself
// is crash-safe.
func Open(ctx context.Context, dir string, manager *lock.Manager, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, ErrInvalidCacheDir
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	c := &Cache{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := manager.Lock(ctx, dir, lock.ModeExclusive,
		fmt.Sprintf("cache %s", filepath.Base(dir)), "open cache", 0)
	if err != nil {
		return nil, err
	}
	c.session = session

	if !session.UnlockedCleanly() {
		c.logger.Info("cache was not unlocked cleanly, rebuilding", "dir", dir)
		err = session.WriteFile(c.rebuild)
	} else {
		err = session.UpdateFile(c.openIndex)
	}
	if err != nil {
		session.Close()
		return nil, err
	}
	return c, nil
}

// rebuild discards the index database and recreates it empty.
func (c *Cache) rebuild() error {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
	if err := os.Remove(c.indexPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: remove stale index: %w", err)
	}
	return c.openIndex()
}

// openIndex opens the bbolt database and ensures the buckets and format
// version are in place. An index stamped with any other format version
// forces a rebuild.
func (c *Cache) openIndex() error {
	db, err := bbolt.Open(c.indexPath(), 0600, nil)
	if err != nil {
		return fmt.Errorf("cache: open index: %w", err)
	}

	var stale bool
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("cache: create meta bucket: %w", err)
		}
		if v := meta.Get(keyVersion); v != nil && (len(v) != 1 || v[0] != formatVersion) {
			stale = true
			return nil
		}
		if err := meta.Put(keyVersion, []byte{formatVersion}); err != nil {
			return fmt.Errorf("cache: stamp format version: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return fmt.Errorf("cache: create entries bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return err
	}
	if stale {
		_ = db.Close()
		c.logger.Info("cache index format changed, rebuilding", "dir", c.dir)
		if err := os.Remove(c.indexPath()); err != nil {
			return fmt.Errorf("cache: remove outdated index: %w", err)
		}
		return c.openIndex()
	}

	c.db = db
	return nil
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, indexFileName)
}

// entryKey derives the fixed-size index key for a cache key.
func entryKey(key string) []byte {
	sum := blake2b.Sum256([]byte(key))
	return sum[:]
}

// Get returns the value stored under key, or ErrEntryNotFound.
func (c *Cache) Get(key string) ([]byte, error) {
	if c.session == nil {
		return nil, ErrCacheClosed
	}
	value, err := c.session.ReadFile(func() (any, error) {
		if c.db == nil {
			return nil, ErrCacheClosed
		}
		var out []byte
		err := c.db.View(func(tx *bbolt.Tx) error {
			data := tx.Bucket(bucketEntries).Get(entryKey(key))
			if data == nil {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, key)
			}
			out = append([]byte(nil), data...)
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// Has reports whether an entry exists for key.
func (c *Cache) Has(key string) (bool, error) {
	if c.session == nil {
		return false, ErrCacheClosed
	}
	found, err := c.session.ReadFile(func() (any, error) {
		if c.db == nil {
			return false, ErrCacheClosed
		}
		var ok bool
		err := c.db.View(func(tx *bbolt.Tx) error {
			ok = tx.Bucket(bucketEntries).Get(entryKey(key)) != nil
			return nil
		})
		return ok, err
	})
	if err != nil {
		return false, err
	}
	return found.(bool), nil
}

// Put stores value under key inside a write-cycle.
func (c *Cache) Put(key string, value []byte) error {
	if c.session == nil {
		return ErrCacheClosed
	}
	return c.session.UpdateFile(func() error {
		if c.db == nil {
			return ErrCacheClosed
		}
		return c.db.Update(func(tx *bbolt.Tx) error {
			if err := tx.Bucket(bucketEntries).Put(entryKey(key), value); err != nil {
				return fmt.Errorf("cache: put entry: %w", err)
			}
			return nil
		})
	})
}

// Delete removes the entry for key. Deleting a missing entry returns
// ErrEntryNotFound.
func (c *Cache) Delete(key string) error {
	if c.session == nil {
		return ErrCacheClosed
	}
	return c.session.UpdateFile(func() error {
		if c.db == nil {
			return ErrCacheClosed
		}
		return c.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketEntries)
			k := entryKey(key)
			if b.Get(k) == nil {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, key)
			}
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("cache: delete entry: %w", err)
			}
			return nil
		})
	})
}

// Len returns the number of entries.
func (c *Cache) Len() (int, error) {
	if c.session == nil {
		return 0, ErrCacheClosed
	}
	n, err := c.session.ReadFile(func() (any, error) {
		if c.db == nil {
			return 0, ErrCacheClosed
		}
		var count int
		err := c.db.View(func(tx *bbolt.Tx) error {
			count = tx.Bucket(bucketEntries).Stats().KeyN
			return nil
		})
		return count, err
	})
	if err != nil {
		return 0, err
	}
	return n.(int), nil
}

// Close closes the index and releases the lock session. It is idempotent.
func (c *Cache) Close() error {
	var err error
	if c.db != nil {
		if cerr := c.db.Close(); cerr != nil {
			err = fmt.Errorf("cache: close index: %w", cerr)
		}
		c.db = nil
	}
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	return err
}
