package memstore

import (
	"sync"

	"github.com/brettbedarf/dirstore"
	"github.com/puzpuzpuz/xsync/v4"
)

// bucket is one owner's isolated tree: its own identifier generator and
// directory map. The map lock is taken shared for lookups and exclusive for
// inserts and cascading deletes.
type bucket struct {
	ids idGenerator

	mu   sync.RWMutex
	dirs map[dirstore.DirectoryID]*record
}

func newBucket() *bucket {
	return &bucket{dirs: make(map[dirstore.DirectoryID]*record)}
}

// lookup returns the record for id under a brief shared lock.
func (b *bucket) lookup(id dirstore.DirectoryID) (*record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.dirs[id]
	return rec, ok
}

// len returns the number of live records.
func (b *bucket) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.dirs)
}

// registry maps owners to their buckets. Buckets are created lazily and live
// for the lifetime of the registry.
type registry struct {
	buckets *xsync.Map[dirstore.OwnerID, *bucket]
}

func newRegistry() *registry {
	return &registry{buckets: xsync.NewMap[dirstore.OwnerID, *bucket]()}
}

// bucketFor returns the owner's bucket, creating it on first use. Concurrent
// first accesses for one owner always observe the same bucket.
func (r *registry) bucketFor(owner dirstore.OwnerID) *bucket {
	// fast path
	if b, ok := r.buckets.Load(owner); ok {
		return b
	}
	// only one LoadOrStore wins; losers get the winner's bucket
	b, _ := r.buckets.LoadOrStore(owner, newBucket())
	return b
}

// existing returns the owner's bucket without creating one.
func (r *registry) existing(owner dirstore.OwnerID) (*bucket, bool) {
	return r.buckets.Load(owner)
}

func (r *registry) size() int {
	return r.buckets.Size()
}
