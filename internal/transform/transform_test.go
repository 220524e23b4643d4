// internal/transform/transform_test.go
package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/solatis/thomson/internal/rules"
	"github.com/solatis/thomson/internal/types"
)

// decodeJSON parses text and normalizes it the way document loaders do.
func decodeJSON(t *testing.T, text string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("Decode(%s) error = %v", text, err)
	}
	n, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize(%s) error = %v", text, err)
	}
	return n
}

func compileJSON(t *testing.T, text string) *rules.Rules {
	t.Helper()
	r, err := rules.Compile(decodeJSON(t, text), 0)
	if err != nil {
		t.Fatalf("Compile(%s) error = %v", text, err)
	}
	return r
}

func TestTransform_Fixtures(t *testing.T) {
	tests := []struct {
		name   string
		rules  string
		source string
		want   string
	}{
		{
			name:   "identity",
			rules:  `{}`,
			source: `{"a": {"b": 1, "c": [1, 2.5, "x", true, null]}, "e": {}, "f": []}`,
			want:   `{"a": {"b": 1, "c": [1, 2.5, "x", true, null]}, "e": {}, "f": []}`,
		},
		{
			name:   "grouping",
			rules:  `{"a.b.c": 1}`,
			source: `{"a": {"b": {"c": 5}}}`,
			want:   `{"a.b.c": 5}`,
		},
		{
			name:   "grouped prefix with ungrouped remainder",
			rules:  `{"a.b": 1}`,
			source: `{"a": {"b": {"x": 1, "y": 2}}}`,
			want:   `{"a.b": {"x": 1, "y": 2}}`,
		},
		{
			name:   "array wildcard",
			rules:  `{"items": [{"v.w": 1}]}`,
			source: `{"items": [{"v": {"w": 1}}, {"v": {"w": 2}}]}`,
			want:   `{"items": [{"v.w": 1}, {"v.w": 2}]}`,
		},
		{
			name:   "resynchronizes below a missed key",
			rules:  `{"a": {"b.c": 1}}`,
			source: `{"a": {"x": {"b": {"c": 1}}}}`,
			want:   `{"a": {"x": {"b.c": 1}}}`,
		},
		{
			name:   "incomplete rule is flattened",
			rules:  `{"a.b.c": 1}`,
			source: `{"a": {"b": {"d": 1}}}`,
			want:   `{"a": {"b": {"d": 1}}}`,
		},
		{
			name:   "connected key below a miss adheres to the missed key",
			rules:  `{"a.b": 1}`,
			source: `{"a": {"x": {"b": 1}}}`,
			want:   `{"a": {"x.b": 1}}`,
		},
		{
			name:   "complete and incomplete siblings",
			rules:  `{"editor.font": 1}`,
			source: `{"editor": {"font": {"size": 12, "family": "mono"}, "tabs": 4}}`,
			want:   `{"editor.font": {"family": "mono", "size": 12}, "editor": {"tabs": 4}}`,
		},
		{
			name:   "scalar array under wildcard",
			rules:  `{"xs": [1]}`,
			source: `{"xs": [1, 2, 3]}`,
			want:   `{"xs": [1, 2, 3]}`,
		},
		{
			name:   "resynchronizes inside an unmatched array",
			rules:  `{"xs": {"y.z": 1}}`,
			source: `{"xs": [{"y": {"z": 1}}, {"q": 2}]}`,
			want:   `{"xs": [{"y.z": 1}, {"q": 2}]}`,
		},
		{
			name:   "unmatched top-level keys pass through",
			rules:  `{"window.zoom": 1}`,
			source: `{"window": {"zoom": 2}, "files": {"exclude": ["a", "b"]}}`,
			want:   `{"window.zoom": 2, "files": {"exclude": ["a", "b"]}}`,
		},
		{
			name:   "scalar document",
			rules:  `{"a.b": 1}`,
			source: `"plain"`,
			want:   `"plain"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transform(decodeJSON(t, tt.source), compileJSON(t, tt.rules), 0)
			if err != nil {
				t.Fatalf("Transform() error = %v, want nil", err)
			}
			if diff := cmp.Diff(decodeJSON(t, tt.want), got.Output); diff != "" {
				t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransform_EntryCount(t *testing.T) {
	got, err := Transform(decodeJSON(t, `{"a": {"b": 1, "c": [1, 2]}, "d": {}}`), rules.New(), 0)
	if err != nil {
		t.Fatalf("Transform() error = %v, want nil", err)
	}
	// b, c[0], c[1] and the empty d
	if got.Entries != 4 {
		t.Errorf("Entries = %d, want 4", got.Entries)
	}
}

func TestTransform_Conflict(t *testing.T) {
	_, err := Transform(decodeJSON(t, `{"a": {"b": 2}, "a.b": 1}`), compileJSON(t, `{"a.b": 1}`), 0)
	if err == nil {
		t.Fatalf("Transform() error = nil, want conflict")
	}
	if !IsConflict(err) {
		t.Errorf("IsConflict(%v) = false, want true", err)
	}
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("errors.Is(%v, ErrConflict) = false, want true", err)
	}

	var ae *AssembleError
	if !errors.As(err, &ae) {
		t.Fatalf("errors.As(*AssembleError) = false")
	}
	if ae.Path != "/a.b" {
		t.Errorf("Path = %q, want %q", ae.Path, "/a.b")
	}
}

func TestTransform_NullCollision(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "null then scalar", source: `{"a": {"b": null}, "a.b": 3}`},
		{name: "scalar then null", source: `{"a": {"b": 3}, "a.b": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(decodeJSON(t, tt.source), compileJSON(t, `{"a.b": 1}`), 0)
			if !errors.Is(err, types.ErrConflict) {
				t.Fatalf("Transform() error = %v, want %v", err, types.ErrConflict)
			}
		})
	}
}

func TestTransform_DepthLimit(t *testing.T) {
	source := decodeJSON(t, strings.Repeat(`{"a":`, 10)+"1"+strings.Repeat("}", 10))

	if _, err := Transform(source, rules.New(), 10); err != nil {
		t.Errorf("Transform(depth 10, limit 10) error = %v, want nil", err)
	}
	if _, err := Transform(source, rules.New(), 9); !errors.Is(err, types.ErrDocumentTooDeep) {
		t.Errorf("Transform(depth 10, limit 9) error = %v, want %v", err, types.ErrDocumentTooDeep)
	}
}

func TestTransform_ScalarMapping(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	source := map[string]any{
		"int":   42,
		"small": int8(-3),
		"uint":  uint32(7),
		"float": float32(1.5),
		"when":  when,
		"list":  []any{true, "s"},
	}

	got, err := Transform(source, rules.New(), 0)
	if err != nil {
		t.Fatalf("Transform() error = %v, want nil", err)
	}

	want := map[string]any{
		"int":   int64(42),
		"small": int64(-3),
		"uint":  int64(7),
		"float": float64(1.5),
		"when":  "2024-03-01T12:30:00Z",
		"list":  []any{true, "s"},
	}
	if diff := cmp.Diff(want, got.Output); diff != "" {
		t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_UnsupportedValue(t *testing.T) {
	_, err := Transform(map[string]any{"ch": make(chan int)}, rules.New(), 0)
	if !errors.Is(err, types.ErrUnsupportedValue) {
		t.Errorf("Transform() error = %v, want %v", err, types.ErrUnsupportedValue)
	}
}

func TestTransform_DoesNotAliasSource(t *testing.T) {
	inner := map[string]any{"b": int64(1)}
	source := map[string]any{"a": inner}

	got, err := Transform(source, rules.New(), 0)
	if err != nil {
		t.Fatalf("Transform() error = %v, want nil", err)
	}

	inner["b"] = int64(2)
	out := got.Output.(map[string]any)["a"].(map[string]any)
	if out["b"] != int64(1) {
		t.Errorf("output aliased source: b = %v, want 1", out["b"])
	}
}

func TestMatch_RecordsPaths(t *testing.T) {
	entries, err := Match(decodeJSON(t, `{"a": {"b": {"c": 5}}, "z": [true]}`), compileJSON(t, `{"a.b": {"c": 1}}`), 0)
	if err != nil {
		t.Fatalf("Match() error = %v, want nil", err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Path.String())
	}
	want := []string{"[a.b, c]", "[z, [0]]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match() paths mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch_RejectsUnnormalizedValues(t *testing.T) {
	_, err := Match(map[string]any{"a": 1}, rules.New(), 0)
	if !errors.Is(err, types.ErrUnsupportedValue) {
		t.Errorf("Match() error = %v, want %v", err, types.ErrUnsupportedValue)
	}
}

func TestEngine_NormalizedPaths(t *testing.T) {
	engine := NewEngine(0, zerolog.Nop())

	compiled, err := engine.CompileNormalized(decodeJSON(t, `{"a.b": 1}`))
	if err != nil {
		t.Fatalf("CompileNormalized() error = %v, want nil", err)
	}

	source := decodeJSON(t, `{"a": {"b": 1, "c": [2]}}`)
	want, err := engine.Apply(compiled, source)
	if err != nil {
		t.Fatalf("Apply() error = %v, want nil", err)
	}
	got, err := engine.ApplyNormalized(compiled, source)
	if err != nil {
		t.Fatalf("ApplyNormalized() error = %v, want nil", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyNormalized() mismatch (-want +got):\n%s", diff)
	}

	// no second normalization: model violations reach the matcher
	if _, err := engine.ApplyNormalized(compiled, map[string]any{"a": 1}); !errors.Is(err, types.ErrUnsupportedValue) {
		t.Errorf("ApplyNormalized(int) error = %v, want %v", err, types.ErrUnsupportedValue)
	}
	if _, err := engine.Apply(compiled, map[string]any{"a": 1}); err != nil {
		t.Errorf("Apply(int) error = %v, want nil", err)
	}
}
