package memstore

import (
	"sync"

	"github.com/brettbedarf/dirstore"
	"github.com/puzpuzpuz/xsync/v4"
)

// record is the mutable in-memory representation of one directory.
// id, parentID and depth never change after creation; name and children are
// each guarded independently so renames never contend with structural changes.
type record struct {
	id       dirstore.DirectoryID
	parentID *dirstore.DirectoryID // nil for roots
	depth    uint32

	mu   sync.RWMutex // protects name
	name string

	children *xsync.Map[dirstore.DirectoryID, struct{}] // set of child ids
}

func newRecord(id dirstore.DirectoryID, name string, parentID *dirstore.DirectoryID, depth uint32) *record {
	r := &record{
		id:       id,
		depth:    depth,
		name:     name,
		children: xsync.NewMap[dirstore.DirectoryID, struct{}](),
	}
	if parentID != nil {
		p := *parentID
		r.parentID = &p
	}
	return r
}

// Name returns the current name.
func (r *record) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// SetName replaces the name. Only the name lock is taken.
func (r *record) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

func (r *record) addChild(id dirstore.DirectoryID) {
	r.children.Store(id, struct{}{})
}

// removeChild unlinks id and reports whether it was present.
func (r *record) removeChild(id dirstore.DirectoryID) bool {
	_, ok := r.children.LoadAndDelete(id)
	return ok
}

func (r *record) hasChild(id dirstore.DirectoryID) bool {
	_, ok := r.children.Load(id)
	return ok
}

// childIDs returns a copy of the current children set.
func (r *record) childIDs() []dirstore.DirectoryID {
	ids := make([]dirstore.DirectoryID, 0, r.children.Size())
	r.children.Range(func(id dirstore.DirectoryID, _ struct{}) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// leaf returns a snapshot of the record's own fields with no children.
func (r *record) leaf() *dirstore.Directory {
	d := &dirstore.Directory{
		ID:       r.id,
		Name:     r.Name(),
		Depth:    r.depth,
		Children: []*dirstore.Directory{},
	}
	if r.parentID != nil {
		p := *r.parentID
		d.ParentID = &p
	}
	return d
}
