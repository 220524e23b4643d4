// Package api provides the transform service behind the gRPC and HTTP
// surfaces of thomson serve.
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/thomson/internal/core/history"
	"github.com/solatis/thomson/internal/core/metrics"
	"github.com/solatis/thomson/internal/document"
	"github.com/solatis/thomson/internal/rules"
	"github.com/solatis/thomson/internal/transform"
	"github.com/solatis/thomson/internal/types"
)

// RunStore persists and queries transform runs. Implemented by *history.Store.
type RunStore interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
	Get(ctx context.Context, id types.RunID) (*history.Run, error)
	List(ctx context.Context, opts history.ListOptions) ([]history.Run, error)
}

// recordTimeout bounds the history write after the request context is gone.
const recordTimeout = 5 * time.Second

// maxCachedRules bounds the compiled rules cache. The cache is dropped
// wholesale when full.
const maxCachedRules = 256

// Service executes transforms and records them.
// Thin orchestration layer delegating to transform, history and metrics.
type Service struct {
	engine *transform.Engine
	store  RunStore
	logger zerolog.Logger

	mu       sync.Mutex
	compiled map[string]*rules.Rules
}

// NewService creates service instance with dependencies.
// A nil store disables run history.
func NewService(engine *transform.Engine, store RunStore, logger zerolog.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	return &Service{
		engine:   engine,
		store:    store,
		logger:   logger.With().Str("component", "api").Logger(),
		compiled: make(map[string]*rules.Rules),
	}, nil
}

// Outcome is the result of one executed transform.
type Outcome struct {
	RunID   types.RunID
	Output  any
	Entries int
}

// Execute transforms source with rulesDoc on behalf of origin. The run is
// recorded whether or not the transform succeeds; a failed history write
// fails the call with ErrHistoryUnavailable.
func (s *Service) Execute(ctx context.Context, origin history.Origin, rulesDoc, source any) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	run := history.Run{ID: types.NewRunID(), Origin: origin}
	output, entries, err := s.execute(ctx, &run, rulesDoc, source)
	took := time.Since(start)

	run.DurationMs = took.Milliseconds()
	run.Entries = int64(entries)
	run.Status = history.StatusOK
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = err.Error()
		if code := transform.ErrorCodeOf(err); code != 0 {
			metrics.AssembleErrors.WithLabelValues(code.String()).Inc()
		}
	}
	metrics.ObserveTransform(string(origin), string(run.Status), took, entries)

	log := s.logger.With().
		Str("run_id", string(run.ID)).
		Str("origin", string(origin)).
		Logger()
	if err != nil {
		log.Info().Err(err).Dur("duration", took).Msg("transform failed")
	} else {
		log.Info().Int("entries", entries).Dur("duration", took).Msg("transform complete")
	}

	if recErr := s.record(ctx, run); recErr != nil {
		log.Error().Err(recErr).Msg("failed to record run")
		if err == nil {
			return nil, recErr
		}
	}
	if err != nil {
		return nil, err
	}

	return &Outcome{RunID: run.ID, Output: output, Entries: entries}, nil
}

// execute fills in the digests and output size of run.
func (s *Service) execute(ctx context.Context, run *history.Run, rulesDoc, source any) (any, int, error) {
	rulesDoc, rulesDigest, err := canonical(rulesDoc)
	if err != nil {
		return nil, 0, fmt.Errorf("rules: %w", err)
	}
	run.RulesDigest = rulesDigest

	source, sourceDigest, err := canonical(source)
	if err != nil {
		return nil, 0, fmt.Errorf("source: %w", err)
	}
	run.SourceDigest = sourceDigest

	compiled, err := s.compile(rulesDigest, rulesDoc)
	if err != nil {
		return nil, 0, err
	}

	result, err := s.engine.ApplyNormalized(compiled, source)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	encoded, err := document.Encode(result.Output, false)
	if err != nil {
		return nil, 0, err
	}
	run.OutputBytes = int64(len(encoded))

	return result.Output, result.Entries, nil
}

// compile returns the cached automaton for digest, compiling on a miss.
// rulesDoc is already normalized. Compiled rules are read-only and shared
// between requests.
func (s *Service) compile(digest string, rulesDoc any) (*rules.Rules, error) {
	s.mu.Lock()
	compiled, ok := s.compiled[digest]
	s.mu.Unlock()
	if ok {
		return compiled, nil
	}

	compiled, err := s.engine.CompileNormalized(rulesDoc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.compiled) >= maxCachedRules {
		clear(s.compiled)
	}
	s.compiled[digest] = compiled
	s.mu.Unlock()
	return compiled, nil
}

func (s *Service) record(ctx context.Context, run history.Run) error {
	if s.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if _, err := s.store.Record(ctx, run); err != nil {
		metrics.HistoryWriteFailed.Inc()
		return fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	return nil
}

// Run returns one recorded run.
func (s *Service) Run(ctx context.Context, id types.RunID) (*history.Run, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	run, err := s.store.Get(ctx, id)
	if err != nil && !errors.Is(err, types.ErrRunNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	return run, err
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs(ctx context.Context, opts history.ListOptions) ([]history.Run, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	runs, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	return runs, nil
}

// canonical normalizes doc and fingerprints its compact JSON encoding.
// Object keys encode sorted, so equal documents share a digest.
func canonical(doc any) (any, string, error) {
	normalized, err := transform.Normalize(doc)
	if err != nil {
		return nil, "", err
	}
	encoded, err := document.Encode(normalized, false)
	if err != nil {
		return nil, "", err
	}
	return normalized, history.Digest(encoded), nil
}
