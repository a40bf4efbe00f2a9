// Package dirstore contains the core domain types and the store contract for
// per-owner directory trees.
//
// Every owner gets an isolated tree: identifiers, names and structure created
// under one owner are never visible to another. Concrete implementations live
// in [github.com/brettbedarf/dirstore/memstore] (in-memory, the default) and
// [github.com/brettbedarf/dirstore/badgerstore] (persistent).
package dirstore

import "context"

// DefaultFetchConcurrency is the number of in-flight child fetches allowed
// per directory while materializing a tree.
const DefaultFetchConcurrency = 16

// DefaultMaxDepth is the deepest directory Create accepts unless configured
// otherwise. It keeps recursive reads and cascading deletes bounded.
const DefaultMaxDepth uint32 = 1024

// Store is the contract every directory backend satisfies.
// All operations are safe for concurrent use by many callers.
type Store interface {
	// Create adds a new directory named name under parent, or a new root when
	// parent is nil. It returns the created directory as a leaf.
	Create(ctx context.Context, owner OwnerID, name string, parent *DirectoryID) (*Directory, error)

	// Get returns a snapshot of the directory and its whole subtree.
	Get(ctx context.Context, owner OwnerID, id DirectoryID) (*Directory, error)

	// Rename replaces the directory's name. Structure is left untouched.
	Rename(ctx context.Context, owner OwnerID, id DirectoryID, name string) error

	// Delete removes the directory together with all of its descendants.
	Delete(ctx context.Context, owner OwnerID, id DirectoryID) error
}
