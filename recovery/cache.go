package recovery

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// blobsBucket is the sole bucket this cache uses: one entry per (container, blobID).
var blobsBucket = []byte("reconstructed_blobs")

// Cache is an optional, opt-in memoization layer over Walker.Reconstruct. It is never
// required for correctness — the ledger is always the source of truth, and
// Walker.Reconstruct recomputes everything from scratch whenever the cache misses or is
// absent. This preserves the "no persistence in the core" invariant: a Cache only ever
// exists because a caller explicitly opened one.
//
// Grounded on the teacher's bbolt usage in its block store: one bucket, opened once,
// closed once, closures over db.Update/db.View for every operation.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if necessary) a bbolt-backed cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("recovery: opening cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recovery: initializing cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(container [32]byte, blobID uint64) []byte {
	key := make([]byte, 32+8)
	copy(key[:32], container[:])
	binary.BigEndian.PutUint64(key[32:], blobID)
	return key
}

// Get returns a previously cached reconstruction, if any.
func (c *Cache) Get(container [32]byte, blobID uint64) ([]byte, bool) {
	var out []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobsBucket)
		v := b.Get(cacheKey(container, blobID))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil
}

// Put stores a reconstruction for later reuse.
func (c *Cache) Put(container [32]byte, blobID uint64, blob []byte) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobsBucket)
		return b.Put(cacheKey(container, blobID), blob)
	})
}
