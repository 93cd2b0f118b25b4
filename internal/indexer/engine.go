// Package indexer owns the persistent index lifecycle: it builds an index once,
// serves it to any number of concurrent readers and swaps in a freshly built
// replacement on refresh without readers ever observing a partial index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/metrics"
)

// Snapshot is an immutable corpus/index pair. Once published it is never
// modified, so it may be shared freely between goroutines.
type Snapshot struct {
	Corpus     *corpus.Corpus
	Index      *index.Index
	Generation uint64
	BuiltAt    time.Time
	BuildTime  time.Duration
}

// Options configure an Engine. A nil Provider disables Reload.
type Options struct {
	Policy     tokenizer.Policy
	TextFields []string
	Provider   corpus.Provider
	Metrics    *metrics.Metrics
}

type Engine struct {
	current   atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
	policy    tokenizer.Policy
	fields    []string
	provider  corpus.Provider
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine builds generation 1 from docs.
func NewEngine(docs []corpus.Document, opts Options) *Engine {
	e := &Engine{
		policy:   opts.Policy,
		fields:   opts.TextFields,
		provider: opts.Provider,
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "index-engine"),
	}
	e.Refresh(docs)
	return e
}

// NewEngineFromProvider loads the initial corpus from opts.Provider.
func NewEngineFromProvider(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, apperrors.ErrNoProvider
	}
	docs, err := opts.Provider.Documents(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading initial corpus: %w", err)
	}
	return NewEngine(docs, opts), nil
}

// Current returns the snapshot being served.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

func (e *Engine) Generation() uint64 {
	if s := e.current.Load(); s != nil {
		return s.Generation
	}
	return 0
}

func (e *Engine) Policy() tokenizer.Policy {
	return e.policy
}

func (e *Engine) HasProvider() bool {
	return e.provider != nil
}

// Refresh builds an index over docs and publishes it as the next generation.
// Searches running against the previous snapshot finish undisturbed.
func (e *Engine) Refresh(docs []corpus.Document) *Snapshot {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	start := time.Now()
	c := corpus.New(docs, e.fields...)
	idx := index.Build(c, e.policy)
	took := time.Since(start)

	next := &Snapshot{
		Corpus:     c,
		Index:      idx,
		Generation: e.Generation() + 1,
		BuiltAt:    time.Now().UTC(),
		BuildTime:  took,
	}
	e.current.Store(next)

	e.metrics.ObserveBuild(config.ModePersistent, took)
	e.metrics.SetServedIndex(next.Generation, idx.DocCount(), idx.TermCount())
	e.logger.Info("index built",
		"generation", next.Generation,
		"documents", idx.DocCount(),
		"terms", idx.TermCount(),
		"avg_doc_length", idx.AvgDocLength(),
		"duration_ms", took.Milliseconds(),
	)
	return next
}

// Reload re-reads the corpus from the configured provider and refreshes.
// On failure the current snapshot keeps being served.
func (e *Engine) Reload(ctx context.Context) (*Snapshot, error) {
	if e.provider == nil {
		return nil, apperrors.ErrNoProvider
	}
	docs, err := e.provider.Documents(ctx, "")
	if err != nil {
		e.logger.Error("corpus reload failed, keeping current index",
			"generation", e.Generation(),
			"error", err,
		)
		return nil, fmt.Errorf("reloading corpus: %w", err)
	}
	return e.Refresh(docs), nil
}
