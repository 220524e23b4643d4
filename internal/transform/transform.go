// Package transform remaps source documents according to a compiled rule
// automaton.
//
// The pipeline is Normalize -> Match -> Assemble. Each stage is exported
// so callers and tests can inspect intermediate results; Transform runs
// all three.
package transform

import (
	"github.com/solatis/thomson/internal/rules"
)

// Result is the output of one transform.
type Result struct {
	// Output is the assembled document in the generic document model.
	Output any
	// Entries counts the source leaves recorded by the matcher.
	Entries int
}

// Transform normalizes source, matches it against r and assembles the
// output. A maxDepth of zero or less selects types.DefaultMaxDepth.
//
// The empty rule set reproduces source exactly (after normalization).
func Transform(source any, r *rules.Rules, maxDepth int) (Result, error) {
	doc, err := Normalize(source)
	if err != nil {
		return Result{}, err
	}
	return TransformNormalized(doc, r, maxDepth)
}

// TransformNormalized is Transform for a source that already went through
// Normalize. Values outside the document model fail with
// types.ErrUnsupportedValue.
func TransformNormalized(doc any, r *rules.Rules, maxDepth int) (Result, error) {
	entries, err := Match(doc, r, maxDepth)
	if err != nil {
		return Result{}, err
	}

	out, err := Assemble(entries)
	if err != nil {
		return Result{}, err
	}

	return Result{Output: out, Entries: len(entries)}, nil
}
