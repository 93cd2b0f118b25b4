// Package executor is the query pipeline: tokenize the query with the policy
// the index was built with, score candidates with BM25, order them and cut
// the list to the requested size. Persistent searches run against the
// engine's current snapshot; ephemeral searches build a throwaway index from
// a corpus provider on every call.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/metrics"
)

// Result is a ranked document resolved back to its record.
type Result struct {
	DocID    int             `json:"doc_id"`
	Score    float64         `json:"score"`
	Document corpus.Document `json:"document"`
}

type SearchResult struct {
	Query      string         `json:"query"`
	Terms      []string       `json:"terms"`
	TotalHits  int            `json:"total_hits"`
	Results    []Result       `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	Generation uint64         `json:"generation,omitempty"`
	Mode       string         `json:"mode"`
}

// Searcher is implemented by both lifecycle modes.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (*SearchResult, error)
	Mode() string
}

// SearchCorpus builds an index over c, answers one query and discards the
// index.
func SearchCorpus(query string, c *corpus.Corpus, topK int, params ranker.Params, policy tokenizer.Policy) []Result {
	terms := tokenizer.Terms(query, policy)
	if len(terms) == 0 || topK <= 0 {
		return []Result{}
	}
	idx := index.Build(c, policy)
	results, _ := rank(terms, c, idx, topK, params)
	return results
}

// rank scores terms against idx and resolves the top k to documents of c.
func rank(terms []string, c *corpus.Corpus, idx *index.Index, k int, params ranker.Params) ([]Result, int) {
	scores := ranker.Score(terms, idx, params)
	top := ranker.TopK(scores, k)
	results := make([]Result, 0, len(top))
	for _, sd := range top {
		doc, _ := c.Document(sd.DocID)
		results = append(results, Result{DocID: sd.DocID, Score: sd.Score, Document: doc})
	}
	return results, len(scores)
}

func termStats(terms []string, idx *index.Index) map[string]int {
	stats := make(map[string]int, len(terms))
	for _, t := range terms {
		stats[t] = idx.DocFreq(t)
	}
	return stats
}

func resultType(sr *SearchResult) string {
	switch {
	case len(sr.Terms) == 0:
		return "empty_query"
	case len(sr.Results) == 0:
		return "zero_result"
	default:
		return "hit"
	}
}

func emptyResult(query string, terms []string, mode string) *SearchResult {
	return &SearchResult{
		Query:     query,
		Terms:     terms,
		Results:   []Result{},
		TermStats: map[string]int{},
		Mode:      mode,
	}
}

// Persistent searches the snapshot an indexer.Engine is currently serving.
type Persistent struct {
	engine  *indexer.Engine
	params  ranker.Params
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPersistent(engine *indexer.Engine, params ranker.Params, m *metrics.Metrics) *Persistent {
	return &Persistent{
		engine:  engine,
		params:  params,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor", "mode", config.ModePersistent),
	}
}

func (p *Persistent) Mode() string { return config.ModePersistent }

func (p *Persistent) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	start := time.Now()
	snap := p.engine.Current()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}
	terms := tokenizer.Terms(query, snap.Index.Policy())
	sr := emptyResult(query, terms, config.ModePersistent)
	sr.Generation = snap.Generation
	if len(terms) > 0 && topK > 0 {
		sr.Results, sr.TotalHits = rank(terms, snap.Corpus, snap.Index, topK, p.params)
		sr.TermStats = termStats(terms, snap.Index)
	}

	took := time.Since(start)
	p.metrics.ObserveSearch(config.ModePersistent, resultType(sr), took, len(sr.Results))
	p.logger.Debug("query executed",
		"query", query,
		"terms", terms,
		"generation", snap.Generation,
		"candidates", sr.TotalHits,
		"results", len(sr.Results),
		"duration_us", took.Microseconds(),
	)
	return sr, nil
}

// Ephemeral obtains a fresh corpus for every query and indexes it before
// searching. Nothing is shared between calls.
type Ephemeral struct {
	provider corpus.Provider
	policy   tokenizer.Policy
	fields   []string
	params   ranker.Params
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type EphemeralOptions struct {
	Policy     tokenizer.Policy
	TextFields []string
	Params     ranker.Params
	Metrics    *metrics.Metrics
}

func NewEphemeral(provider corpus.Provider, opts EphemeralOptions) *Ephemeral {
	return &Ephemeral{
		provider: provider,
		policy:   opts.Policy,
		fields:   opts.TextFields,
		params:   opts.Params,
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "query-executor", "mode", config.ModeEphemeral),
	}
}

func (e *Ephemeral) Mode() string { return config.ModeEphemeral }

func (e *Ephemeral) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	start := time.Now()
	terms := tokenizer.Terms(query, e.policy)
	sr := emptyResult(query, terms, config.ModeEphemeral)
	if len(terms) == 0 || topK <= 0 {
		e.metrics.ObserveSearch(config.ModeEphemeral, resultType(sr), time.Since(start), 0)
		return sr, nil
	}

	docs, err := e.provider.Documents(ctx, query)
	if err != nil {
		e.metrics.ObserveSearch(config.ModeEphemeral, "error", time.Since(start), 0)
		return nil, fmt.Errorf("fetching corpus for query %q: %w", query, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildStart := time.Now()
	c := corpus.New(docs, e.fields...)
	idx := index.Build(c, e.policy)
	e.metrics.ObserveBuild(config.ModeEphemeral, time.Since(buildStart))

	sr.Results, sr.TotalHits = rank(terms, c, idx, topK, e.params)
	sr.TermStats = termStats(terms, idx)

	took := time.Since(start)
	e.metrics.ObserveSearch(config.ModeEphemeral, resultType(sr), took, len(sr.Results))
	e.logger.Debug("query executed",
		"query", query,
		"terms", terms,
		"documents", c.Len(),
		"candidates", sr.TotalHits,
		"results", len(sr.Results),
		"duration_us", took.Microseconds(),
	)
	return sr, nil
}
