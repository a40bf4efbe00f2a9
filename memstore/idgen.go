package memstore

import (
	"sync/atomic"

	"github.com/brettbedarf/dirstore"
)

// idGenerator hands out bucket-scoped identifiers in strictly increasing
// order starting at 0. Safe for any number of concurrent callers.
type idGenerator struct {
	issued atomic.Uint64 // count of identifiers handed out so far
}

// Next returns an identifier this generator has never returned before.
func (g *idGenerator) Next() dirstore.DirectoryID {
	return dirstore.DirectoryID(g.issued.Add(1) - 1)
}
