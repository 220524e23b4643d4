// internal/rules/compile.go
package rules

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/solatis/thomson/internal/types"
)

/*
 * Rule compilation.
 *
 * Walks a generic rule document and inserts every key path into the
 * automaton:
 *   - Object keys split on types.Separator. The first sub-key is reached
 *     by a Restarted edge, every following sub-key by a Connected edge, so
 *     "editor.font" later renders as one fused output key.
 *   - Array elements all compile under the single pseudo-index child,
 *     reached by a Restarted edge. One child governs every position of a
 *     matching source array whatever its length.
 *   - Scalars terminate the path. Their values are not interpreted.
 *
 * Object keys are visited in sorted order so that compiling the same
 * document always produces the same arena layout. Insertion reuses
 * existing transitions, so "a.b" and "a.c" share the node for "a".
 *
 * Limits: nesting beyond maxDepth fails with ErrDocumentTooDeep. Empty
 * sub-keys ("a..b", ".a", "a.") fail with ErrInvalidRuleKey.
 */

// Compile builds the automaton for a rule document. A maxDepth of zero or
// less selects types.DefaultMaxDepth; larger values are capped at
// types.MaxDocumentDepth.
func Compile(doc any, maxDepth int) (*Rules, error) {
	r := New()
	c := compiler{rules: r, maxDepth: effectiveDepth(maxDepth)}
	if err := c.compile(doc, RootID, 0, ""); err != nil {
		return nil, err
	}
	return r, nil
}

type compiler struct {
	rules    *Rules
	maxDepth int
}

func effectiveDepth(maxDepth int) int {
	if maxDepth <= 0 {
		return types.DefaultMaxDepth
	}
	return min(maxDepth, types.MaxDocumentDepth)
}

// compile inserts doc below node. at is the dotted rule location used in
// error messages.
func (c *compiler) compile(doc any, node NodeID, depth int, at string) error {
	if depth > c.maxDepth {
		return fmt.Errorf("rule %q: %w (limit %d)", at, types.ErrDocumentTooDeep, c.maxDepth)
	}

	switch v := doc.(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			next, err := c.insertKey(node, name)
			if err != nil {
				return fmt.Errorf("rule %q: %w", join(at, name), err)
			}
			if err := c.compile(v[name], next, depth+1, join(at, name)); err != nil {
				return err
			}
		}
		return nil

	case []any:
		for i, elem := range v {
			next, err := c.rules.nextOrCreate(node, types.Restarted, types.PseudoIndex())
			if err != nil {
				return fmt.Errorf("rule %q: %w", join(at, "[*]"), err)
			}
			if err := c.compile(elem, next, depth+1, join(at, fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
		return nil

	default:
		if !isScalar(v) {
			return fmt.Errorf("rule %q: %w: %T", at, types.ErrUnsupportedValue, v)
		}
		return nil
	}
}

// insertKey splits a dotted rule key and follows or creates its sub-keys.
func (c *compiler) insertKey(node NodeID, name string) (NodeID, error) {
	parts := strings.Split(name, types.Separator)
	for i, part := range parts {
		if part == "" {
			return 0, types.ErrInvalidRuleKey
		}

		edge := types.Connected
		if i == 0 {
			edge = types.Restarted
		}

		next, err := c.rules.nextOrCreate(node, edge, types.Field(part))
		if err != nil {
			return 0, err
		}
		node = next
	}
	return node, nil
}

func join(at, name string) string {
	if at == "" {
		return name
	}
	return at + "/" + name
}

// isScalar accepts the leaf values a decoded rule document may carry.
func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
