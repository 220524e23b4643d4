// internal/transform/match.go
package transform

import (
	"fmt"
	"slices"

	"github.com/solatis/thomson/internal/rules"
	"github.com/solatis/thomson/internal/types"
)

/*
 * Matcher: walks a normalized source document in lock-step with the rule
 * automaton and records one Entry per source leaf.
 *
 * Object keys and array positions are tried against the current node:
 *   - Hit: link the key with the edge of the reached node and descend into
 *     that node.
 *   - Miss: push the key as a fresh unit and descend with the SAME node, so
 *     deeper keys can still resynchronize with the rules.
 *
 * On a miss at a non-leaf node the pending grouping belonged to a rule that
 * did not complete, so the path is flattened for the missed branch and
 * restored afterwards. At a leaf the rule is complete: its grouping is kept
 * and the remainder hangs below it ungrouped. Restoring after each branch
 * keeps sibling order from leaking into the result.
 *
 * Array elements look up the pseudo-index; the recorded key is the concrete
 * Index(i, n) either way.
 *
 * Empty objects and arrays are recorded as leaves holding a fresh empty
 * container, so the identity rule set reproduces them.
 */

// Entry is one recorded source leaf and the output path it resolves to.
type Entry struct {
	Path  *Path
	Value any
}

// Match walks source against r. Source must be normalized (see Normalize).
// A maxDepth of zero or less selects types.DefaultMaxDepth.
func Match(source any, r *rules.Rules, maxDepth int) ([]Entry, error) {
	if maxDepth <= 0 {
		maxDepth = types.DefaultMaxDepth
	}
	m := matcher{rules: r, maxDepth: min(maxDepth, types.MaxDocumentDepth)}
	if err := m.walk(source, r.Root(), 0); err != nil {
		return nil, err
	}
	return m.entries, nil
}

type matcher struct {
	rules    *rules.Rules
	maxDepth int
	path     Path
	entries  []Entry
}

// walk descends into value at node.
func (m *matcher) walk(value any, node rules.NodeID, depth int) error {
	if depth > m.maxDepth {
		return fmt.Errorf("source %s: %w (limit %d)", m.path.String(), types.ErrDocumentTooDeep, m.maxDepth)
	}

	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			m.record(map[string]any{})
			return nil
		}
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			key := types.Field(name)
			if err := m.step(v[name], node, key, key, depth); err != nil {
				return err
			}
		}
		return nil

	case []any:
		if len(v) == 0 {
			m.record([]any{})
			return nil
		}
		for i, elem := range v {
			if err := m.step(elem, node, types.PseudoIndex(), types.Index(i, len(v)), depth); err != nil {
				return err
			}
		}
		return nil

	case nil, bool, int64, float64, string:
		m.record(v)
		return nil

	default:
		return fmt.Errorf("source %s: %w: %T", m.path.String(), types.ErrUnsupportedValue, v)
	}
}

// step descends into one child value. lookup is the transition looked up in
// the automaton, key the concrete key recorded on the path.
func (m *matcher) step(value any, node rules.NodeID, lookup, key types.Key, depth int) error {
	if next, ok := m.rules.Get(node, lookup); ok {
		m.path.Link(m.rules.Edge(next), key)
		err := m.walk(value, next, depth+1)
		m.path.Pop()
		return err
	}

	if !m.rules.IsLeaf(node) {
		restore := m.path.Flatten()
		defer restore()
	}
	m.path.Push(key)
	err := m.walk(value, node, depth+1)
	m.path.Pop()
	return err
}

func (m *matcher) record(value any) {
	m.entries = append(m.entries, Entry{Path: m.path.Clone(), Value: value})
}
