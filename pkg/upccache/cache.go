// Package upccache layers an optional local TTL cache over product lookups.
// The API client itself stays pass-through; callers that want cached lookups
// wrap the client with a Store.
package upccache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	productBucket    = "products"
	expiryValueBytes = 8
)

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// Lookuper is the slice of the API client a Store delegates to on cache miss.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (map[string]any, error)
}

// Options controls retention characteristics of a Store.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Store is a bbolt-backed cache of product lookup documents keyed by barcode.
type Store struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
}

// Open initializes a Store at the given path, creating parent directories as
// needed.
func Open(path string, opts Options) (*Store, error) {
	opts = normalizeOptions(opts)

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(productBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &Store{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the cached document for code, or delegates to next and
// caches the result. Delegate errors are returned as-is and nothing is
// cached for them.
func (s *Store) Lookup(ctx context.Context, next Lookuper, code string) (map[string]any, error) {
	doc, ok, err := s.Get(code)
	if err != nil {
		return nil, err
	}
	if ok {
		return doc, nil
	}

	doc, err = next.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.Put(code, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get fetches the cached document for code. The second return is false when
// the entry is absent or expired; expired entries are removed on read.
func (s *Store) Get(code string) (map[string]any, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}

	if err := s.maybeCleanupExpired(time.Now()); err != nil {
		return nil, false, err
	}

	var doc map[string]any
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		if bucket == nil {
			return fmt.Errorf("product bucket missing")
		}

		key := []byte(code)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		expiry, payload, ok := decodeEntry(value)
		if !ok || !expiry.After(time.Now()) {
			return bucket.Delete(key)
		}

		if err := json.Unmarshal(payload, &doc); err != nil {
			return fmt.Errorf("decode cached document: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return doc, found, nil
}

// Put stores a document for code with the configured TTL.
func (s *Store) Put(code string, doc map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		if bucket == nil {
			return fmt.Errorf("product bucket missing")
		}
		value := make([]byte, expiryValueBytes+len(payload))
		binary.BigEndian.PutUint64(value, uint64(now.Add(s.ttl).Unix()))
		copy(value[expiryValueBytes:], payload)
		return bucket.Put([]byte(code), value)
	})
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid
// unbounded growth.
func (s *Store) maybeCleanupExpired(now time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}

	last := time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	last = time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(productBucket))
		if bucket == nil {
			return fmt.Errorf("product bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeEntry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		s.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeEntry splits a stored value into its expiry time and JSON payload.
func decodeEntry(value []byte) (time.Time, []byte, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, nil, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, nil, false
	}
	return time.Unix(unix, 0), value[expiryValueBytes:], true
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}
