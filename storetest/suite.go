// Package storetest provides a conformance suite every [dirstore.Store]
// implementation must pass.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetest.Suite{
//	        NewStore: func(t *testing.T) dirstore.Store { return mystore.New() },
//	        MaxDepth: 200,
//	    }
//	    suite.Run(t)
//	}
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/brettbedarf/dirstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Suite runs the shared store tests.
type Suite struct {
	// NewStore returns a fresh, empty store for each test.
	NewStore func(t *testing.T) dirstore.Store
	// MaxDepth is the depth limit the stores from NewStore were built with.
	// Must be 0 (unlimited) or at least 129 for the chain tests.
	MaxDepth uint32
}

func (s *Suite) Run(t *testing.T) {
	t.Run("CreateRoot", s.TestCreateRoot)
	t.Run("CreateUniqueIDs", s.TestCreateUniqueIDs)
	t.Run("CreateChild", s.TestCreateChild)
	t.Run("CreateMissingParent", s.TestCreateMissingParent)
	t.Run("MissingTargets", s.TestMissingTargets)
	t.Run("ChildrenOrderedByID", s.TestChildrenOrderedByID)
	t.Run("Rename", s.TestRename)
	t.Run("DeleteCascadesWideTree", s.TestDeleteCascadesWideTree)
	t.Run("DeleteChain", s.TestDeleteChain)
	t.Run("OwnerIsolation", s.TestOwnerIsolation)
	t.Run("DepthLimit", s.TestDepthLimit)
	t.Run("ConcurrentCreate", s.TestConcurrentCreate)
	t.Run("ConcurrentCreateDuringDelete", s.TestConcurrentCreateDuringDelete)
	t.Run("ConcurrentReadDuringWrites", s.TestConcurrentReadDuringWrites)
}

const owner dirstore.OwnerID = 1

// mustCreate creates a directory and fails the test on error.
func mustCreate(t *testing.T, store dirstore.Store, owner dirstore.OwnerID, name string, parent *dirstore.DirectoryID) *dirstore.Directory {
	t.Helper()
	dir, err := store.Create(context.Background(), owner, name, parent)
	require.NoError(t, err)
	require.NotNil(t, dir)
	return dir
}

// buildChain creates a root plus n nested directories, returning all n+1 of
// them ordered from the root down.
func buildChain(t *testing.T, store dirstore.Store, n int) []*dirstore.Directory {
	t.Helper()
	chain := []*dirstore.Directory{mustCreate(t, store, owner, "root", nil)}
	for i := range n {
		parent := chain[len(chain)-1].ID
		chain = append(chain, mustCreate(t, store, owner, fmt.Sprintf("child-%d", i), &parent))
	}
	return chain
}

func childIDs(dir *dirstore.Directory) []dirstore.DirectoryID {
	ids := make([]dirstore.DirectoryID, 0, len(dir.Children))
	for _, c := range dir.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func assertNotFound(t *testing.T, err error, id dirstore.DirectoryID) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, dirstore.ErrDirectoryNotFound)
	var nf *dirstore.NotFoundError
	if assert.ErrorAs(t, err, &nf) {
		assert.Equal(t, id, nf.ID)
	}
}

func (s *Suite) TestCreateRoot(t *testing.T) {
	store := s.NewStore(t)

	dir := mustCreate(t, store, owner, "root", nil)

	assert.Equal(t, "root", dir.Name)
	assert.Nil(t, dir.ParentID)
	assert.Zero(t, dir.Depth)
	assert.Empty(t, dir.Children)

	got, err := store.Get(context.Background(), owner, dir.ID)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func (s *Suite) TestCreateUniqueIDs(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	known := make(map[dirstore.DirectoryID]string, 1024)
	for i := range 1024 {
		name := fmt.Sprintf("test-%d", i)
		dir := mustCreate(t, store, owner, name, nil)
		_, dup := known[dir.ID]
		require.False(t, dup, "id %d handed out twice", dir.ID)
		known[dir.ID] = name
	}

	for id, name := range known {
		dir, err := store.Get(ctx, owner, id)
		require.NoError(t, err)
		assert.Equal(t, name, dir.Name)
	}
}

func (s *Suite) TestCreateChild(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	root := mustCreate(t, store, owner, "root", nil)
	child := mustCreate(t, store, owner, "child", &root.ID)

	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
	assert.Equal(t, root.Depth+1, child.Depth)
	assert.Empty(t, child.Children)

	got, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []dirstore.DirectoryID{child.ID}, childIDs(got), "child must be listed exactly once")

	grandchild := mustCreate(t, store, owner, "grandchild", &child.ID)
	assert.Equal(t, uint32(2), grandchild.Depth)
}

func (s *Suite) TestCreateMissingParent(t *testing.T) {
	store := s.NewStore(t)

	missing := dirstore.DirectoryID(4242)
	_, err := store.Create(context.Background(), owner, "orphan", &missing)

	assertNotFound(t, err, missing)
}

func (s *Suite) TestMissingTargets(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	// make sure the owner has a tree so lookups reach the bucket
	mustCreate(t, store, owner, "root", nil)
	missing := dirstore.DirectoryID(99)

	t.Run("Get", func(t *testing.T) {
		_, err := store.Get(ctx, owner, missing)
		assertNotFound(t, err, missing)
	})
	t.Run("Rename", func(t *testing.T) {
		err := store.Rename(ctx, owner, missing, "x")
		assertNotFound(t, err, missing)
	})
	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, owner, missing)
		assertNotFound(t, err, missing)
	})
	t.Run("UnknownOwner", func(t *testing.T) {
		_, err := store.Get(ctx, 777, 0)
		assertNotFound(t, err, 0)
	})
}

func (s *Suite) TestChildrenOrderedByID(t *testing.T) {
	store := s.NewStore(t)

	root := mustCreate(t, store, owner, "root", nil)
	for i := range 64 {
		mustCreate(t, store, owner, fmt.Sprintf("child-%d", i), &root.ID)
	}

	got, err := store.Get(context.Background(), owner, root.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 64)
	assert.IsIncreasing(t, childIDs(got))
}

func (s *Suite) TestRename(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	root := mustCreate(t, store, owner, "root", nil)
	a := mustCreate(t, store, owner, "a", &root.ID)
	b := mustCreate(t, store, owner, "b", &root.ID)
	mustCreate(t, store, owner, "a-child", &a.ID)

	before, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)

	require.NoError(t, store.Rename(ctx, owner, a.ID, "renamed"))

	renamed, err := store.Get(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)
	assert.Equal(t, a.Depth, renamed.Depth)
	assert.Equal(t, a.ParentID, renamed.ParentID)
	assert.Len(t, renamed.Children, 1)

	sibling, err := store.Get(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", sibling.Name)

	after, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", after.Name)
	assert.ElementsMatch(t, childIDs(before), childIDs(after), "structure must not change")
}

func (s *Suite) TestDeleteCascadesWideTree(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	root := mustCreate(t, store, owner, "root", nil)
	children := make([]*dirstore.Directory, 0, 16)
	for i := range 16 {
		child := mustCreate(t, store, owner, fmt.Sprintf("child-%d", i), &root.ID)
		assert.Equal(t, uint32(1), child.Depth)
		children = append(children, child)
	}

	t.Run("LeafDeleteKeepsSiblings", func(t *testing.T) {
		victim := children[0]
		require.NoError(t, store.Delete(ctx, owner, victim.ID))

		_, err := store.Get(ctx, owner, victim.ID)
		assertNotFound(t, err, victim.ID)

		got, err := store.Get(ctx, owner, root.ID)
		require.NoError(t, err)
		assert.Equal(t, "root", got.Name)
		assert.Zero(t, got.Depth)
		assert.Nil(t, got.ParentID)
		assert.Len(t, got.Children, 15)
		assert.NotContains(t, childIDs(got), victim.ID)
		for _, sibling := range children[1:] {
			assert.Contains(t, childIDs(got), sibling.ID)
		}
	})

	t.Run("RootDeleteRemovesAll", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, owner, root.ID))

		_, err := store.Get(ctx, owner, root.ID)
		assertNotFound(t, err, root.ID)
		for _, child := range children {
			_, err := store.Get(ctx, owner, child.ID)
			assertNotFound(t, err, child.ID)
		}
	})
}

func (s *Suite) TestDeleteChain(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	chain := buildChain(t, store, 128)
	require.Len(t, chain, 129)
	assert.Equal(t, uint32(128), chain[128].Depth)

	got, err := store.Get(ctx, owner, chain[0].ID)
	require.NoError(t, err)
	deepest := got
	for len(deepest.Children) > 0 {
		require.Len(t, deepest.Children, 1)
		deepest = deepest.Children[0]
	}
	assert.Equal(t, chain[128].ID, deepest.ID)
	assert.Equal(t, uint32(128), deepest.Depth)

	// 10th from the root, taking 119 descendants with it
	require.NoError(t, store.Delete(ctx, owner, chain[9].ID))

	for _, dir := range chain[9:] {
		_, err := store.Get(ctx, owner, dir.ID)
		assertNotFound(t, err, dir.ID)
	}
	for _, dir := range chain[:9] {
		_, err := store.Get(ctx, owner, dir.ID)
		require.NoError(t, err)
	}
	ninth, err := store.Get(ctx, owner, chain[8].ID)
	require.NoError(t, err)
	assert.Empty(t, ninth.Children)
}

func (s *Suite) TestOwnerIsolation(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	const ownerA, ownerB dirstore.OwnerID = 10, 20

	rootA := mustCreate(t, store, ownerA, "shared-name", nil)
	rootB := mustCreate(t, store, ownerB, "shared-name", nil)
	mustCreate(t, store, ownerB, "b-only", &rootB.ID)
	onlyB := mustCreate(t, store, ownerB, "b-only-root", nil)

	_, err := store.Get(ctx, ownerA, onlyB.ID)
	assertNotFound(t, err, onlyB.ID)

	gotA, err := store.Get(ctx, ownerA, rootA.ID)
	require.NoError(t, err)
	assert.Empty(t, gotA.Children, "owner A must not see owner B's children")

	require.NoError(t, store.Rename(ctx, ownerA, rootA.ID, "a-renamed"))
	gotB, err := store.Get(ctx, ownerB, rootB.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared-name", gotB.Name)
	assert.Len(t, gotB.Children, 1)

	require.NoError(t, store.Delete(ctx, ownerA, rootA.ID))
	_, err = store.Get(ctx, ownerB, rootB.ID)
	assert.NoError(t, err)
}

func (s *Suite) TestDepthLimit(t *testing.T) {
	if s.MaxDepth == 0 {
		t.Skip("store built without a depth limit")
	}
	store := s.NewStore(t)

	chain := buildChain(t, store, int(s.MaxDepth))
	last := chain[len(chain)-1]
	require.Equal(t, s.MaxDepth, last.Depth)

	_, err := store.Create(context.Background(), owner, "too-deep", &last.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, dirstore.ErrDepthLimitExceeded)
	var dl *dirstore.DepthLimitError
	require.True(t, errors.As(err, &dl))
	assert.Equal(t, s.MaxDepth, dl.Max)
}

func (s *Suite) TestConcurrentCreate(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	root := mustCreate(t, store, owner, "root", nil)

	const workers, perWorker = 16, 16
	ids := make(chan dirstore.DirectoryID, workers*perWorker)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Go(func() {
			for i := range perWorker {
				dir, err := store.Create(ctx, owner, fmt.Sprintf("w%d-%d", w, i), &root.ID)
				if assert.NoError(t, err) {
					ids <- dir.ID
				}
			}
		})
	}
	wg.Wait()
	close(ids)

	seen := make(map[dirstore.DirectoryID]struct{})
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "id %d handed out twice", id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, workers*perWorker)

	got, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.Len(t, got.Children, workers*perWorker)
	for _, id := range childIDs(got) {
		assert.Contains(t, seen, id)
	}
}

func (s *Suite) TestConcurrentCreateDuringDelete(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	root := mustCreate(t, store, owner, "root", nil)
	mid := mustCreate(t, store, owner, "mid", &root.ID)

	var (
		mu      sync.Mutex
		created []dirstore.DirectoryID
		wg      sync.WaitGroup
	)
	start := make(chan struct{})
	for w := range 8 {
		wg.Go(func() {
			<-start
			parent := mid.ID
			for i := range 32 {
				dir, err := store.Create(ctx, owner, fmt.Sprintf("w%d-%d", w, i), &parent)
				if err != nil {
					// parent subtree is gone
					assert.ErrorIs(t, err, dirstore.ErrDirectoryNotFound)
					return
				}
				mu.Lock()
				created = append(created, dir.ID)
				mu.Unlock()
				parent = dir.ID
			}
		})
	}
	wg.Go(func() {
		<-start
		assert.NoError(t, store.Delete(ctx, owner, mid.ID))
	})
	close(start)
	wg.Wait()

	// nothing created under mid may survive its deletion
	for _, id := range created {
		_, err := store.Get(ctx, owner, id)
		assertNotFound(t, err, id)
	}
	got, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Children)
}

func (s *Suite) TestConcurrentReadDuringWrites(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	root := mustCreate(t, store, owner, "root", nil)
	children := make([]*dirstore.Directory, 0, 64)
	for i := range 64 {
		child := mustCreate(t, store, owner, fmt.Sprintf("c%d", i), &root.ID)
		mustCreate(t, store, owner, "leaf", &child.ID)
		children = append(children, child)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 16 {
				got, err := store.Get(ctx, owner, root.ID)
				if assert.NoError(t, err) {
					assert.LessOrEqual(t, len(got.Children), 64)
				}
			}
		})
	}
	for _, child := range children[:32] {
		wg.Go(func() {
			assert.NoError(t, store.Delete(ctx, owner, child.ID))
		})
	}
	for _, child := range children[32:] {
		wg.Go(func() {
			assert.NoError(t, store.Rename(ctx, owner, child.ID, "renamed"))
		})
	}
	wg.Wait()

	got, err := store.Get(ctx, owner, root.ID)
	require.NoError(t, err)
	assert.Len(t, got.Children, 32)
	for _, c := range got.Children {
		assert.Equal(t, "renamed", c.Name)
		assert.Len(t, c.Children, 1)
	}
}
