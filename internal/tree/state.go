package tree

import (
	"net/url"
	"sort"
	"strings"
)

// State is the presentation state of a rendered forest. Every node starts
// Expanded and is toggled independently; at most one node is selected.
type State struct {
	collapsed map[string]struct{}
	selected  string
}

// Row is one visible line of a rendered forest.
type Row struct {
	Node     *Node
	Depth    int
	Expanded bool
	Selected bool
}

// NewState returns a state with every node expanded and nothing selected.
func NewState() *State {
	return &State{collapsed: make(map[string]struct{})}
}

// IsExpanded reports whether id is expanded.
func (s *State) IsExpanded(id string) bool {
	_, collapsed := s.collapsed[id]
	return !collapsed
}

// Toggle flips id between Expanded and Collapsed.
func (s *State) Toggle(id string) {
	if s.IsExpanded(id) {
		s.Collapse(id)
	} else {
		s.Expand(id)
	}
}

// Expand marks id Expanded.
func (s *State) Expand(id string) { delete(s.collapsed, id) }

// Collapse marks id Collapsed.
func (s *State) Collapse(id string) {
	if id != "" {
		s.collapsed[id] = struct{}{}
	}
}

// Select makes id the single selected node, replacing any previous one.
func (s *State) Select(id string) { s.selected = id }

// ClearSelection removes the selection marker.
func (s *State) ClearSelection() { s.selected = "" }

// Selected returns the selected id, if any.
func (s *State) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// IsSelected reports whether id carries the selection marker.
func (s *State) IsSelected(id string) bool {
	return s.selected != "" && s.selected == id
}

// Visible returns the pre-order traversal of forest as rendered under s:
// descendants of collapsed nodes are omitted. The forest is not modified.
func (s *State) Visible(forest []*Node) []Row {
	rows := make([]Row, 0)
	Walk(forest, func(n *Node, depth int) bool {
		expanded := s.IsExpanded(n.ID())
		rows = append(rows, Row{
			Node:     n,
			Depth:    depth,
			Expanded: expanded,
			Selected: s.IsSelected(n.ID()),
		})
		return expanded
	})
	return rows
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := NewState()
	for id := range s.collapsed {
		c.collapsed[id] = struct{}{}
	}
	c.selected = s.selected
	return c
}

// ParseState reads the "collapsed" (comma separated ids) and "selected"
// query parameters.
func ParseState(q url.Values) *State {
	s := NewState()
	for _, raw := range q["collapsed"] {
		for _, id := range strings.Split(raw, ",") {
			s.Collapse(strings.TrimSpace(id))
		}
	}
	s.Select(strings.TrimSpace(q.Get("selected")))
	return s
}

// Encode writes s back into query parameters. Collapsed ids are sorted so
// equal states encode identically.
func (s *State) Encode() url.Values {
	q := url.Values{}
	if len(s.collapsed) > 0 {
		ids := make([]string, 0, len(s.collapsed))
		for id := range s.collapsed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		q.Set("collapsed", strings.Join(ids, ","))
	}
	if s.selected != "" {
		q.Set("selected", s.selected)
	}
	return q
}

// ToggleQuery returns the encoded query string of s with id toggled.
func (s *State) ToggleQuery(id string) string {
	c := s.Clone()
	c.Toggle(id)
	return c.Encode().Encode()
}

// SelectQuery returns the encoded query string of s with id selected.
func (s *State) SelectQuery(id string) string {
	c := s.Clone()
	c.Select(id)
	return c.Encode().Encode()
}
