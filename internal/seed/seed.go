// Package seed populates a store with placeholder trees for demos and load checks.
package seed

import (
	"context"
	"fmt"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
)

// PlaceholderName is used for nodes without an explicit name.
const PlaceholderName = "Empty"

// Node describes one directory to create and the subtree below it.
// Width adds that many childless placeholders after Children.
type Node struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
	Width    int    `json:"width,omitempty" yaml:"width,omitempty"`
}

// Dataset is one tree to create for one owner.
type Dataset struct {
	Owner dirstore.OwnerID `json:"owner" yaml:"owner"`
	Tree  Node             `json:"tree" yaml:"tree"`
}

// Wide returns a node with n childless placeholder children.
func Wide(n int) Node {
	return Node{Width: n}
}

// Size is the number of directories the node expands to.
func (n Node) Size() int {
	size := 1 + max(n.Width, 0)
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// expand returns the node's children with Width placeholders appended.
func (n Node) expand() []Node {
	if n.Width <= 0 {
		return n.Children
	}
	kids := make([]Node, 0, len(n.Children)+n.Width)
	kids = append(kids, n.Children...)
	return append(kids, make([]Node, n.Width)...)
}

// Default is the demo dataset created by the --seed flag.
func Default() []Dataset {
	return []Dataset{
		{Owner: 0, Tree: Node{Children: []Node{{}, Wide(5), {}, Wide(1000), Wide(1000)}}},
		{Owner: 42, Tree: Node{Children: []Node{
			{}, Wide(1000), Wide(1000), Wide(1000), Wide(1000), Wide(1000),
		}}},
	}
}

type pending struct {
	node   Node
	parent *dirstore.DirectoryID
}

// Populate creates tree as a new root for owner, parents before children, and
// returns the root id with the number of directories created. It stops at the
// first failed create.
func Populate(ctx context.Context, store dirstore.Store, owner dirstore.OwnerID, tree Node) (dirstore.DirectoryID, int, error) {
	logger := util.GetLogger("seed")

	var (
		root    dirstore.DirectoryID
		created int
	)
	stack := []pending{{node: tree}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		name := cur.node.Name
		if name == "" {
			name = PlaceholderName
		}
		dir, err := store.Create(ctx, owner, name, cur.parent)
		if err != nil {
			return root, created, fmt.Errorf("seed owner %d after %d directories: %w", owner, created, err)
		}
		if created == 0 {
			root = dir.ID
		}
		created++

		id := dir.ID
		kids := cur.node.expand()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, pending{node: kids[i], parent: &id})
		}
	}

	logger.Debug().Uint64("owner", uint64(owner)).Int("created", created).Msg("Seeded directory tree")
	return root, created, nil
}
