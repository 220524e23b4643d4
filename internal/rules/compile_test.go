// internal/rules/compile_test.go
package rules

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/thomson/internal/types"
)

func decode(t *testing.T, text string) any {
	t.Helper()
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("json.Unmarshal(%s) error = %v", text, err)
	}
	return doc
}

func mustCompile(t *testing.T, text string) *Rules {
	t.Helper()
	r, err := Compile(decode(t, text), 0)
	if err != nil {
		t.Fatalf("Compile(%s) error = %v, want nil", text, err)
	}
	return r
}

func TestCompile_EmptyDocument(t *testing.T) {
	r := mustCompile(t, `{}`)

	if !r.IsLeaf(r.Root()) {
		t.Errorf("IsLeaf(root) = false, want true")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if got := r.Paths(); got != nil {
		t.Errorf("Paths() = %v, want nil", got)
	}
}

func TestCompile_DottedKeyEdges(t *testing.T) {
	r := mustCompile(t, `{"a.b.c": 1}`)

	a, ok := r.Get(r.Root(), types.Field("a"))
	if !ok {
		t.Fatalf("Get(root, a) missing")
	}
	if r.Edge(a) != types.Restarted {
		t.Errorf("Edge(a) = %v, want restarted", r.Edge(a))
	}

	b, ok := r.Get(a, types.Field("b"))
	if !ok {
		t.Fatalf("Get(a, b) missing")
	}
	if r.Edge(b) != types.Connected {
		t.Errorf("Edge(b) = %v, want connected", r.Edge(b))
	}

	c, ok := r.Get(b, types.Field("c"))
	if !ok {
		t.Fatalf("Get(b, c) missing")
	}
	if r.Edge(c) != types.Connected {
		t.Errorf("Edge(c) = %v, want connected", r.Edge(c))
	}
	if !r.IsLeaf(c) {
		t.Errorf("IsLeaf(c) = false, want true")
	}
	if r.IsLeaf(b) {
		t.Errorf("IsLeaf(b) = true, want false")
	}
}

func TestCompile_NestedObjectRestarts(t *testing.T) {
	r := mustCompile(t, `{"a": {"b.c": 1}}`)

	a, _ := r.Get(r.Root(), types.Field("a"))
	b, ok := r.Get(a, types.Field("b"))
	if !ok {
		t.Fatalf("Get(a, b) missing")
	}
	if r.Edge(b) != types.Restarted {
		t.Errorf("Edge(b) = %v, want restarted", r.Edge(b))
	}
	c, _ := r.Get(b, types.Field("c"))
	if r.Edge(c) != types.Connected {
		t.Errorf("Edge(c) = %v, want connected", r.Edge(c))
	}
}

func TestCompile_ArrayUsesPseudoIndex(t *testing.T) {
	r := mustCompile(t, `{"items": [{"v.w": 1}, {"v.w": 2}, {"x": true}]}`)

	items, _ := r.Get(r.Root(), types.Field("items"))
	elem, ok := r.Get(items, types.PseudoIndex())
	if !ok {
		t.Fatalf("Get(items, [*]) missing")
	}
	if r.Edge(elem) != types.Restarted {
		t.Errorf("Edge([*]) = %v, want restarted", r.Edge(elem))
	}
	if _, ok := r.Get(items, types.Index(1, 3)); ok {
		t.Errorf("Get(items, [1]) found, want only the pseudo-index")
	}

	// root, items, [*], v, w, x
	if r.Len() != 6 {
		t.Errorf("Len() = %d, want 6", r.Len())
	}
}

func TestCompile_EmptyArrayAddsNoChild(t *testing.T) {
	r := mustCompile(t, `{"items": []}`)

	items, _ := r.Get(r.Root(), types.Field("items"))
	if !r.IsLeaf(items) {
		t.Errorf("IsLeaf(items) = false, want true")
	}
}

func TestCompile_SharedPrefixes(t *testing.T) {
	r := mustCompile(t, `{"editor.font": 1, "editor.size": 2, "editor": {"zoom": 3}}`)

	// root, editor, font, size, zoom
	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     any
		wantErr error
	}{
		{"empty segment", map[string]any{"a..b": 1}, types.ErrInvalidRuleKey},
		{"leading separator", map[string]any{".a": 1}, types.ErrInvalidRuleKey},
		{"trailing separator", map[string]any{"a.": 1}, types.ErrInvalidRuleKey},
		{"empty key", map[string]any{"": 1}, types.ErrInvalidRuleKey},
		{"edge conflict", map[string]any{"a.b": 1, "a": map[string]any{"b": 1}}, types.ErrEdgeConflict},
		{"unsupported value", map[string]any{"a": struct{}{}}, types.ErrUnsupportedValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.doc, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompile_DepthLimit(t *testing.T) {
	doc := decode(t, strings.Repeat(`{"a":`, 5)+"1"+strings.Repeat("}", 5))

	if _, err := Compile(doc, 5); err != nil {
		t.Errorf("Compile(depth 5, limit 5) error = %v, want nil", err)
	}
	if _, err := Compile(doc, 4); !errors.Is(err, types.ErrDocumentTooDeep) {
		t.Errorf("Compile(depth 5, limit 4) error = %v, want %v", err, types.ErrDocumentTooDeep)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	text := `{"editor.font": 1, "editor.size": 2, "window": {"zoom": 1}, "items": [{"v.w": 1}, {"v.w": 1}]}`

	first := mustCompile(t, text)
	second := mustCompile(t, text)

	if diff := cmp.Diff(first, second, cmp.AllowUnexported(Rules{})); diff != "" {
		t.Errorf("Compile() arenas differ (-first +second):\n%s", diff)
	}
	if !first.Equal(second) {
		t.Errorf("Equal() = false, want true")
	}
}

func TestRules_Equal(t *testing.T) {
	a := mustCompile(t, `{"a.b": 1, "c": [1]}`)
	b := mustCompile(t, `{"c": [1], "a.b": 1}`)
	c := mustCompile(t, `{"a": {"b": 1}, "c": [1]}`)

	if !a.Equal(b) {
		t.Errorf("Equal(same document) = false, want true")
	}
	if a.Equal(c) {
		t.Errorf("Equal(different edges) = true, want false")
	}
	if a.Equal(nil) {
		t.Errorf("Equal(nil) = true, want false")
	}
}

func TestRules_PathsAndDepth(t *testing.T) {
	r := mustCompile(t, `{"editor.font": 1, "editor.size": 2, "window": {"zoom": 1}, "items": [{"v.w": 1}]}`)

	want := []string{
		"[editor.font]",
		"[editor.size]",
		"[items, [*], v.w]",
		"[window, zoom]",
	}
	if diff := cmp.Diff(want, r.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	if r.Depth() != 4 {
		t.Errorf("Depth() = %d, want 4", r.Depth())
	}
}

// Property-based test: compilation is independent of key insertion order
func TestCompile_PropertyOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("documents with the same keys compile to equal automata", prop.ForAll(
		func(names []string) bool {
			forward := make(map[string]any, len(names))
			for _, name := range names {
				forward[name] = map[string]any{name + ".leaf": 1}
			}
			backward := make(map[string]any, len(names))
			for i := len(names) - 1; i >= 0; i-- {
				backward[names[i]] = map[string]any{names[i] + ".leaf": 1}
			}

			a, errA := Compile(forward, 0)
			b, errB := Compile(backward, 0)
			if errA != nil || errB != nil {
				return false
			}
			return a.Equal(b) && cmp.Equal(a, b, cmp.AllowUnexported(Rules{}))
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
