// Package metadb is a small durable sidecar for counters and bookkeeping
// that are useful across restarts but are never the source of truth for
// queue state: the slab registry (directory scan) and the cursor file own
// that. This mirrors the role BoltDB plays in the teacher's own metaDB
// implementation — a place to persist small pieces of state next to the
// segment files, not a replacement for them.
package metadb

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	statsBucket  = []byte("stats")
	orphanBucket = []byte("orphans")
)

const (
	keyAppended  = "appended"
	keyPolled    = "polled"
	keyRollovers = "rollovers"
	keyDeletions = "deletions"
)

// DB is the metadata sidecar for one queue's storage directory.
type DB struct {
	bolt *bolt.DB
}

// Open opens (creating if necessary) the metadata database at path.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("metadb: open: %w", err)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(statsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(orphanBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("metadb: init buckets: %w", err)
	}
	return &DB{bolt: bdb}, nil
}

// Stats is the set of lifetime counters persisted across restarts.
type Stats struct {
	Appended  uint64
	Polled    uint64
	Rollovers uint64
	Deletions uint64
}

// Load reads the current lifetime counters.
func (db *DB) Load() (Stats, error) {
	var s Stats
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket)
		s.Appended = getUint64(b, keyAppended)
		s.Polled = getUint64(b, keyPolled)
		s.Rollovers = getUint64(b, keyRollovers)
		s.Deletions = getUint64(b, keyDeletions)
		return nil
	})
	return s, err
}

func getUint64(b *bolt.Bucket, key string) uint64 {
	v := b.Get([]byte(key))
	if len(v) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (db *DB) increment(key string, delta uint64) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket)
		cur := getUint64(b, key)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], cur+delta)
		return b.Put([]byte(key), buf[:])
	})
}

// IncrAppended records a successful append.
func (db *DB) IncrAppended() error { return db.increment(keyAppended, 1) }

// IncrPolled records a successful poll.
func (db *DB) IncrPolled() error { return db.increment(keyPolled, 1) }

// IncrRollovers records a slab rollover.
func (db *DB) IncrRollovers() error { return db.increment(keyRollovers, 1) }

// IncrDeletions records a slab deletion.
func (db *DB) IncrDeletions() error { return db.increment(keyDeletions, 1) }

// RecordOrphan appends id to the swept-orphan ledger, for observability only.
func (db *DB) RecordOrphan(id int64) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(orphanBucket)
		var key [8]byte
		binary.LittleEndian.PutUint64(key[:], uint64(id))
		return b.Put(key[:], []byte{1})
	})
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.bolt.Close()
}
