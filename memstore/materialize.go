package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/sourcegraph/conc/pool"
)

// materializer assembles a snapshot of a subtree. Children of each directory
// are fetched concurrently, at most limit at a time. A child that can no
// longer be read (e.g. deleted after it was listed) is left out of the result.
// Children are ordered by id.
//
// NOTE: branches may reflect different points in time when writers are active.
type materializer struct {
	bucket *bucket
	limit  int
	logger util.Logger

	// onFetch, when set, runs as each child fetch starts; the returned func
	// runs when it ends.
	onFetch func(id dirstore.DirectoryID) (done func())
}

func (m *materializer) materialize(ctx context.Context, id dirstore.DirectoryID) (*dirstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := m.bucket.lookup(id)
	if !ok {
		return nil, dirstore.NotFound(id)
	}

	dir := rec.leaf()
	childIDs := rec.childIDs()
	if len(childIDs) == 0 {
		return dir, nil
	}

	p := pool.NewWithResults[*dirstore.Directory]().
		WithContext(ctx).
		WithMaxGoroutines(m.limit)
	for _, childID := range childIDs {
		p.Go(func(ctx context.Context) (*dirstore.Directory, error) {
			if m.onFetch != nil {
				defer m.onFetch(childID)()
			}
			child, err := m.materialize(ctx, childID)
			if err != nil {
				m.logger.Warn().
					Err(err).
					Uint64("parent", uint64(id)).
					Uint64("child", uint64(childID)).
					Msg("Dropping unreadable child from snapshot")
			}
			return child, err
		})
	}
	// results of failed fetches are not collected
	children, _ := p.Wait()
	if children != nil {
		// pool results arrive in completion order
		slices.SortFunc(children, func(a, b *dirstore.Directory) int {
			return cmp.Compare(a.ID, b.ID)
		})
		dir.Children = children
	}
	return dir, nil
}
