package memstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaterializer(b *bucket, limit int) *materializer {
	return &materializer{bucket: b, limit: limit, logger: util.GetLogger("test")}
}

func TestMaterializer_DropsUnreadableChildren(t *testing.T) {
	t.Parallel()

	b := newBucket()
	root, err := b.insert("root", nil, 0)
	require.NoError(t, err)
	live, err := b.insert("live", &root.id, 0)
	require.NoError(t, err)
	// listed by the parent but already gone from the map
	root.addChild(1000)

	dir, err := newTestMaterializer(b, 4).materialize(context.Background(), root.id)

	require.NoError(t, err)
	require.Len(t, dir.Children, 1)
	assert.Equal(t, live.id, dir.Children[0].ID)
}

func TestMaterializer_WideTree(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 2, 16} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			t.Parallel()

			b := newBucket()
			root, err := b.insert("root", nil, 0)
			require.NoError(t, err)
			want := make([]dirstore.DirectoryID, 0, 100)
			for i := range 100 {
				child, err := b.insert(fmt.Sprintf("c%d", i), &root.id, 0)
				require.NoError(t, err)
				_, err = b.insert("leaf", &child.id, 0)
				require.NoError(t, err)
				want = append(want, child.id)
			}

			dir, err := newTestMaterializer(b, limit).materialize(context.Background(), root.id)
			require.NoError(t, err)

			got := make([]dirstore.DirectoryID, 0, len(dir.Children))
			for _, c := range dir.Children {
				got = append(got, c.ID)
				assert.Len(t, c.Children, 1)
				assert.Equal(t, uint32(1), c.Depth)
			}
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestMaterializer_BoundsInFlightFetches(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 2, 16} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			t.Parallel()

			b := newBucket()
			root, err := b.insert("root", nil, 0)
			require.NoError(t, err)
			for i := range 100 {
				_, err := b.insert(fmt.Sprintf("c%d", i), &root.id, 0)
				require.NoError(t, err)
			}

			var inFlight, peak, calls atomic.Int64
			m := newTestMaterializer(b, limit)
			m.onFetch = func(dirstore.DirectoryID) func() {
				calls.Add(1)
				n := inFlight.Add(1)
				for {
					cur := peak.Load()
					if n <= cur || peak.CompareAndSwap(cur, n) {
						break
					}
				}
				// keep the slot busy so concurrent fetches overlap
				time.Sleep(time.Millisecond)
				return func() { inFlight.Add(-1) }
			}

			dir, err := m.materialize(context.Background(), root.id)
			require.NoError(t, err)

			assert.Len(t, dir.Children, 100)
			assert.Equal(t, int64(100), calls.Load())
			assert.Zero(t, inFlight.Load())
			assert.LessOrEqual(t, peak.Load(), int64(limit))
			if limit > 1 {
				assert.Greater(t, peak.Load(), int64(1), "fetches never overlapped")
			}
		})
	}
}

func TestMaterializer_Missing(t *testing.T) {
	t.Parallel()

	_, err := newTestMaterializer(newBucket(), 1).materialize(context.Background(), 3)

	assert.ErrorIs(t, err, dirstore.ErrDirectoryNotFound)
}

func TestMaterializer_CancelledContext(t *testing.T) {
	t.Parallel()

	b := newBucket()
	root, err := b.insert("root", nil, 0)
	require.NoError(t, err)
	_, err = b.insert("child", &root.id, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newTestMaterializer(b, 1).materialize(ctx, root.id)
	assert.ErrorIs(t, err, context.Canceled)
}
