// internal/rules/automaton.go
package rules

import (
	"slices"

	"github.com/solatis/thomson/internal/types"
)

/*
 * Rule automaton stored as an arena of trie nodes.
 *
 * Nodes live in one slice and refer to their children by NodeID (slice
 * index). Every node carries the Edge that reached it, so the matcher
 * knows whether a hit opens a new output unit or fuses onto the previous
 * one. The root is always NodeID 0 and carries the default Restarted edge.
 *
 * Children are only ever appended, never re-pointed, so the arena forms a
 * tree: no cycles, depth bounded by rule document nesting.
 *
 * Rules is read-only after Compile returns and may be shared by concurrent
 * matchers without locking.
 */

// NodeID addresses a node inside a Rules arena.
type NodeID int

// RootID is the automaton entry point.
const RootID NodeID = 0

// Node is one trie state: the edge that reached it and its transitions.
type Node struct {
	Edge     types.Edge
	Children map[types.Key]NodeID
}

// Rules is a compiled rule automaton.
type Rules struct {
	nodes []Node
}

// New returns an automaton holding only the root node. With no transitions
// the matcher copies every source document unchanged.
func New() *Rules {
	return &Rules{nodes: []Node{{Edge: types.Restarted}}}
}

// Root returns the entry node.
func (r *Rules) Root() NodeID {
	return RootID
}

// Len returns the number of nodes, root included.
func (r *Rules) Len() int {
	return len(r.nodes)
}

// Get returns the child reached from id by key.
func (r *Rules) Get(id NodeID, key types.Key) (NodeID, bool) {
	next, ok := r.nodes[id].Children[key]
	return next, ok
}

// Edge returns the edge that reached id.
func (r *Rules) Edge(id NodeID) types.Edge {
	return r.nodes[id].Edge
}

// IsLeaf reports whether id terminates a rule.
func (r *Rules) IsLeaf(id NodeID) bool {
	return len(r.nodes[id].Children) == 0
}

// nextOrCreate follows key from id, appending a new node reached by edge
// when the transition does not exist yet. Existing transitions are reused
// so repeated prefixes share one chain; reusing one through a different
// edge returns ErrEdgeConflict.
func (r *Rules) nextOrCreate(id NodeID, edge types.Edge, key types.Key) (NodeID, error) {
	if next, ok := r.nodes[id].Children[key]; ok {
		if r.nodes[next].Edge != edge {
			return 0, types.ErrEdgeConflict
		}
		return next, nil
	}

	next := NodeID(len(r.nodes))
	r.nodes = append(r.nodes, Node{Edge: edge})
	if r.nodes[id].Children == nil {
		r.nodes[id].Children = make(map[types.Key]NodeID)
	}
	r.nodes[id].Children[key] = next
	return next, nil
}

// sortedChildren returns the transitions of id in CompareKeys order.
func (r *Rules) sortedChildren(id NodeID) []types.Key {
	keys := make([]types.Key, 0, len(r.nodes[id].Children))
	for k := range r.nodes[id].Children {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, types.CompareKeys)
	return keys
}

// Equal reports whether two automata recognize the same key paths with the
// same edges. Arena layout is ignored.
func (r *Rules) Equal(other *Rules) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.nodes) != len(other.nodes) {
		return false
	}
	return r.equalAt(RootID, other, RootID)
}

func (r *Rules) equalAt(a NodeID, other *Rules, b NodeID) bool {
	na, nb := r.nodes[a], other.nodes[b]
	if na.Edge != nb.Edge || len(na.Children) != len(nb.Children) {
		return false
	}
	for key, ca := range na.Children {
		cb, ok := nb.Children[key]
		if !ok || !r.equalAt(ca, other, cb) {
			return false
		}
	}
	return true
}

// Depth returns the number of transitions on the longest rule path.
func (r *Rules) Depth() int {
	return r.depthAt(RootID)
}

func (r *Rules) depthAt(id NodeID) int {
	deepest := 0
	for _, child := range r.nodes[id].Children {
		if d := r.depthAt(child) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Paths lists every root-to-leaf rule path rendered as output units,
// e.g. "[editor.font, size]". Connected keys share a unit. Used for
// diagnostics; order follows CompareKeys at every level.
func (r *Rules) Paths() []string {
	if r.IsLeaf(RootID) {
		return nil
	}
	var out []string
	var units [][]types.Key
	r.collectPaths(RootID, &units, &out)
	return out
}

func (r *Rules) collectPaths(id NodeID, units *[][]types.Key, out *[]string) {
	if r.IsLeaf(id) {
		*out = append(*out, types.FormatUnits(*units))
		return
	}
	for _, key := range r.sortedChildren(id) {
		child := r.nodes[id].Children[key]
		n := len(*units)
		if r.nodes[child].Edge == types.Connected && n > 0 {
			last := (*units)[n-1]
			(*units)[n-1] = append(last[:len(last):len(last)], key)
			r.collectPaths(child, units, out)
			(*units)[n-1] = last
			continue
		}
		*units = append(*units, []types.Key{key})
		r.collectPaths(child, units, out)
		*units = (*units)[:n]
	}
}
