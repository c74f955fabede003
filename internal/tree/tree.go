// Package tree turns flat parent-pointer article records into an ordered
// forest and holds the expand/collapse and selection state used to render it.
package tree

import "github.com/starford/arbor/internal/models"

// Node is an article plus its ordered children. Nodes are rebuilt from the
// flat collection on every read and never persisted.
type Node struct {
	Article  *models.Article
	Children []*Node
	// Orphan is set when the article declares a parent that is not part of
	// the collection; such nodes are placed at root level.
	Orphan bool
}

// ID returns the article id of the node.
func (n *Node) ID() string { return n.Article.ID }

// HasChildren reports whether the node has at least one child.
func (n *Node) HasChildren() bool { return len(n.Children) > 0 }

// BuildForest links records into an ordered forest in O(n).
//
// Roots and children keep input order. A record whose parent id does not
// resolve becomes an orphan root. When an id repeats, the first record wins
// and later duplicates are ignored. Records that only reach each other
// through a parent cycle are never attached to a root.
func BuildForest(records []models.Article) []*Node {
	nodes := make(map[string]*Node, len(records))
	for i := range records {
		if _, dup := nodes[records[i].ID]; dup {
			continue
		}
		nodes[records[i].ID] = &Node{Article: &records[i], Children: []*Node{}}
	}

	forest := make([]*Node, 0)
	for i := range records {
		rec := &records[i]
		n := nodes[rec.ID]
		if n.Article != rec {
			continue
		}
		if rec.IsRoot() {
			forest = append(forest, n)
			continue
		}
		parent, ok := nodes[*rec.ParentID]
		if !ok {
			n.Orphan = true
			forest = append(forest, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return forest
}

// Walk visits every node reachable from the forest in pre-order. Returning
// false from fn skips the node's descendants.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
}

// Find returns the node with the given id, or nil.
func Find(forest []*Node, id string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes reachable from the forest.
func Count(forest []*Node) int {
	total := 0
	Walk(forest, func(*Node, int) bool {
		total++
		return true
	})
	return total
}
