package tree

import (
	"sort"

	"github.com/starford/arbor/internal/models"
)

// Parents maps article id to parent id; roots map to "".
type Parents map[string]string

// ParentsOf indexes the parent pointers of records.
func ParentsOf(records []models.Article) Parents {
	p := make(Parents, len(records))
	for i := range records {
		parent := ""
		if !records[i].IsRoot() {
			parent = *records[i].ParentID
		}
		p[records[i].ID] = parent
	}
	return p
}

// Ancestors returns the ids above id, nearest first. It stops at a root,
// at a parent that is not indexed, or when it would revisit an id.
func (p Parents) Ancestors(id string) []string {
	var out []string
	seen := map[string]struct{}{id: {}}
	cur := p[id]
	for cur != "" {
		if _, loop := seen[cur]; loop {
			break
		}
		seen[cur] = struct{}{}
		if _, known := p[cur]; !known {
			break
		}
		out = append(out, cur)
		cur = p[cur]
	}
	return out
}

// IsAncestor reports whether ancestor sits somewhere above id.
func (p Parents) IsAncestor(ancestor, id string) bool {
	for _, a := range p.Ancestors(id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// WouldCycle reports whether giving id the parent newParent makes id its
// own ancestor.
func (p Parents) WouldCycle(id, newParent string) bool {
	if newParent == "" {
		return false
	}
	return newParent == id || p.IsAncestor(id, newParent)
}

// Dangling returns the ids, sorted, whose declared parent is not indexed.
func (p Parents) Dangling() []string {
	var out []string
	for id, parent := range p {
		if parent == "" {
			continue
		}
		if _, ok := p[parent]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
