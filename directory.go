package dirstore

import "strconv"

// OwnerID is the opaque caller identity partitioning the store into isolated trees.
type OwnerID uint64

// DirectoryID identifies a directory within one owner's tree. IDs are handed
// out in strictly increasing order starting at 0 and are never reused.
type DirectoryID uint64

func (id DirectoryID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseDirectoryID parses the decimal form produced by [DirectoryID.String].
func ParseDirectoryID(s string) (DirectoryID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return DirectoryID(v), nil
}

// Directory is a read-only snapshot of a directory and its materialized subtree.
// It is produced fresh on every read and never shared with the store.
type Directory struct {
	ID       DirectoryID  `json:"id"`
	Name     string       `json:"name"`
	ParentID *DirectoryID `json:"parent_id"`
	Children []*Directory `json:"children"`
	Depth    uint32       `json:"depth"`
}
