package transform

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/thomson/internal/rules"
	"github.com/solatis/thomson/internal/types"
)

// Engine bundles the depth limit and logger shared by the CLI and the
// transform service. Safe for concurrent use.
type Engine struct {
	maxDepth int
	logger   zerolog.Logger
}

// NewEngine creates an engine. A maxDepth of zero or less selects
// types.DefaultMaxDepth.
func NewEngine(maxDepth int, logger zerolog.Logger) *Engine {
	if maxDepth <= 0 {
		maxDepth = types.DefaultMaxDepth
	}
	return &Engine{
		maxDepth: min(maxDepth, types.MaxDocumentDepth),
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// MaxDepth returns the effective recursion limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Compile normalizes and compiles a rule document.
func (e *Engine) Compile(rulesDoc any) (*rules.Rules, error) {
	doc, err := Normalize(rulesDoc)
	if err != nil {
		return nil, err
	}
	return e.CompileNormalized(doc)
}

// CompileNormalized compiles a rule document that already went through
// Normalize.
func (e *Engine) CompileNormalized(doc any) (*rules.Rules, error) {
	compiled, err := rules.Compile(doc, e.maxDepth)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Int("nodes", compiled.Len()).
		Int("depth", compiled.Depth()).
		Msg("compiled rules")
	return compiled, nil
}

// Run compiles rulesDoc and transforms source with it.
func (e *Engine) Run(rulesDoc, source any) (Result, error) {
	start := time.Now()

	compiled, err := e.Compile(rulesDoc)
	if err != nil {
		return Result{}, err
	}

	result, err := e.Apply(compiled, source)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug().
		Int("entries", result.Entries).
		Dur("duration", time.Since(start)).
		Msg("transform complete")
	return result, nil
}

// Apply transforms source with already compiled rules.
func (e *Engine) Apply(compiled *rules.Rules, source any) (Result, error) {
	doc, err := Normalize(source)
	if err != nil {
		return Result{}, err
	}
	return e.ApplyNormalized(compiled, doc)
}

// ApplyNormalized is Apply for a source that already went through Normalize.
func (e *Engine) ApplyNormalized(compiled *rules.Rules, doc any) (Result, error) {
	result, err := TransformNormalized(doc, compiled, e.maxDepth)
	if err != nil {
		e.logger.Debug().Err(err).Msg("transform failed")
		return Result{}, err
	}
	return result, nil
}
