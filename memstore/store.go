// Package memstore is the in-memory implementation of [dirstore.Store].
//
// Each owner's tree lives in its own bucket. Lock order, coarsest first:
// the bucket registry (lookup/insert only), the bucket map (shared for reads,
// exclusive for create and delete), then a record's name or children.
// No lock is held across a recursive child fetch.
package memstore

import (
	"context"
	"fmt"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
)

// Options tunes a [Store].
type Options struct {
	// FetchConcurrency bounds in-flight child fetches per directory while
	// materializing a tree. Values < 1 use [dirstore.DefaultFetchConcurrency].
	FetchConcurrency int
	// MaxDepth is the deepest directory Create accepts; 0 disables the check.
	MaxDepth uint32
}

// DefaultOptions returns the options used by [NewDefault].
func DefaultOptions() Options {
	return Options{
		FetchConcurrency: dirstore.DefaultFetchConcurrency,
		MaxDepth:         dirstore.DefaultMaxDepth,
	}
}

// Store keeps per-owner directory trees in memory. Nothing survives a restart.
type Store struct {
	opts     Options
	registry *registry
}

var _ dirstore.Store = (*Store)(nil)

func New(opts Options) *Store {
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = dirstore.DefaultFetchConcurrency
	}
	return &Store{opts: opts, registry: newRegistry()}
}

func NewDefault() *Store {
	return New(DefaultOptions())
}

// Create inserts a new directory. The record is in the bucket map and linked
// into its parent's children before Create returns.
func (s *Store) Create(ctx context.Context, owner dirstore.OwnerID, name string, parent *dirstore.DirectoryID) (*dirstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := util.GetLogger("memstore.Create")

	rec, err := s.registry.bucketFor(owner).insert(name, parent, s.opts.MaxDepth)
	if err != nil {
		logger.Debug().Err(err).Uint64("owner", uint64(owner)).Msg("Create rejected")
		return nil, err
	}
	logger.Debug().
		Uint64("owner", uint64(owner)).
		Uint64("id", uint64(rec.id)).
		Uint32("depth", rec.depth).
		Msg("Created directory")
	return rec.leaf(), nil
}

// Get materializes the directory and its subtree.
func (s *Store) Get(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) (*dirstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := s.registry.existing(owner)
	if !ok {
		return nil, dirstore.NotFound(id)
	}
	m := &materializer{bucket: b, limit: s.opts.FetchConcurrency, logger: util.GetLogger("memstore.Get")}
	return m.materialize(ctx, id)
}

// Rename replaces the directory's name without touching the bucket map lock
// beyond the initial lookup.
func (s *Store) Rename(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, ok := s.registry.existing(owner)
	if !ok {
		return dirstore.NotFound(id)
	}
	rec, ok := b.lookup(id)
	if !ok {
		return dirstore.NotFound(id)
	}
	rec.SetName(name)
	return nil
}

// Delete removes the directory and its whole subtree, then unlinks it from
// its parent. The bucket map is held exclusively for the entire walk so no
// child can be attached to a node that is about to disappear.
func (s *Store) Delete(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := util.GetLogger("memstore.Delete")

	b, ok := s.registry.existing(owner)
	if !ok {
		return dirstore.NotFound(id)
	}
	removed, err := b.removeTree(id)
	if err != nil {
		return err
	}
	logger.Debug().
		Uint64("owner", uint64(owner)).
		Uint64("id", uint64(id)).
		Int("removed", removed).
		Msg("Deleted directory tree")
	return nil
}

// Len returns the number of directories currently stored for owner.
func (s *Store) Len(owner dirstore.OwnerID) int {
	b, ok := s.registry.existing(owner)
	if !ok {
		return 0
	}
	return b.len()
}

// Owners returns the number of owners that have ever created a directory.
func (s *Store) Owners() int {
	return s.registry.size()
}

// insert allocates an id and links a new record under parent while holding
// the bucket map exclusively.
func (b *bucket) insert(name string, parent *dirstore.DirectoryID, maxDepth uint32) (*record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		depth     uint32
		parentRec *record
	)
	if parent != nil {
		p, ok := b.dirs[*parent]
		if !ok {
			return nil, dirstore.NotFound(*parent)
		}
		if maxDepth > 0 && p.depth+1 > maxDepth {
			return nil, dirstore.DepthLimitExceeded(maxDepth)
		}
		parentRec = p
		depth = p.depth + 1
	}

	id := b.ids.Next()
	if _, exists := b.dirs[id]; exists {
		logger := util.GetLogger("memstore.insert")
		// the generator never repeats; a hit means the id space is corrupt
		logger.Error().Uint64("id", uint64(id)).Msg("Directory id collision (id sequence is broken)")
		panic(fmt.Sprintf("memstore: directory id collision on %d", id))
	}

	rec := newRecord(id, name, parent, depth)
	b.dirs[id] = rec
	if parentRec != nil {
		parentRec.addChild(id)
	}
	return rec, nil
}

// removeTree deletes id and every descendant using an explicit work stack,
// then unlinks id from its parent. Returns the number of records removed.
func (b *bucket) removeTree(id dirstore.DirectoryID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.dirs[id]
	if !ok {
		return 0, dirstore.NotFound(id)
	}

	removed := 0
	pending := []dirstore.DirectoryID{id}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		rec, ok := b.dirs[cur]
		if !ok {
			continue
		}
		pending = append(pending, rec.childIDs()...)
		delete(b.dirs, cur)
		removed++
	}

	// unlink last so the parent never names a half-removed subtree
	if target.parentID != nil {
		if parent, ok := b.dirs[*target.parentID]; ok {
			parent.removeChild(id)
		}
	}
	return removed, nil
}
