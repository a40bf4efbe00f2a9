package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/mocks"
	"github.com/brettbedarf/dirstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNode_Size(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Node{}.Size())
	assert.Equal(t, 6, Wide(5).Size())
	assert.Equal(t, 4, Node{Width: 2, Children: []Node{{}}}.Size())

	defaults := Default()
	require.Len(t, defaults, 2)
	assert.Equal(t, dirstore.OwnerID(0), defaults[0].Owner)
	assert.Equal(t, 2011, defaults[0].Tree.Size())
	assert.Equal(t, dirstore.OwnerID(42), defaults[1].Owner)
	assert.Equal(t, 5007, defaults[1].Tree.Size())
}

func TestPopulate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.NewDefault()

	tree := Node{Name: "root", Children: []Node{
		{Name: "a", Children: []Node{{Name: "a1"}}, Width: 1},
		Wide(3),
	}}

	rootID, created, err := Populate(ctx, store, 5, tree)
	require.NoError(t, err)
	assert.Equal(t, tree.Size(), created)

	got, err := store.Get(ctx, 5, rootID)
	require.NoError(t, err)
	assert.Equal(t, "root", got.Name)
	require.Len(t, got.Children, 2)

	a := got.Children[0]
	assert.Equal(t, "a", a.Name)
	require.Len(t, a.Children, 2)
	assert.Equal(t, "a1", a.Children[0].Name)
	assert.Equal(t, PlaceholderName, a.Children[1].Name)
	assert.Equal(t, uint32(2), a.Children[1].Depth)

	assert.Len(t, got.Children[1].Children, 3)

	assert.Equal(t, created, countTree(got))
}

func TestPopulate_DefaultDataset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.NewDefault()

	for _, ds := range Default() {
		_, created, err := Populate(ctx, store, ds.Owner, ds.Tree)
		require.NoError(t, err)
		assert.Equal(t, ds.Tree.Size(), created)
		assert.Equal(t, ds.Tree.Size(), store.Len(ds.Owner))
	}
}

func TestPopulate_StopsOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := new(mocks.MockStore)
	store.On("Create", ctx, dirstore.OwnerID(1), PlaceholderName, (*dirstore.DirectoryID)(nil)).
		Return(&dirstore.Directory{ID: 0}, nil).Once()
	store.On("Create", ctx, dirstore.OwnerID(1), PlaceholderName, mock.Anything).
		Return(nil, errors.New("full")).Once()

	_, created, err := Populate(ctx, store, 1, Wide(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
	assert.Equal(t, 1, created)
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Create", 2)
}

func countTree(d *dirstore.Directory) int {
	n := 1
	for _, c := range d.Children {
		n += countTree(c)
	}
	return n
}
