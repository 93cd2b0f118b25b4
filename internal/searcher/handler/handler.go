// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/refresh"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/logger"
)

// maxRefreshBody bounds inline corpora posted to the refresh endpoint.
const maxRefreshBody = 64 << 20

// Refresher rebuilds the persistent index. *refresh.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, docs []corpus.Document, trigger string) (*indexer.Snapshot, error)
}

type Options struct {
	Searcher     executor.Searcher
	Engine       *indexer.Engine
	Refresher    Refresher
	Cache        *cache.QueryCache
	DefaultLimit int
	MaxResults   int
	TextFields   []string
}

type Handler struct {
	searcher     executor.Searcher
	engine       *indexer.Engine
	refresher    Refresher
	cache        *cache.QueryCache
	defaultLimit int
	maxResults   int
	textFields   []string
	logger       *slog.Logger
}

// New creates a Handler. Engine and Refresher are nil in ephemeral mode and
// Cache is nil when caching is disabled.
func New(opts Options) *Handler {
	return &Handler{
		searcher:     opts.Searcher,
		engine:       opts.Engine,
		refresher:    opts.Refresher,
		cache:        opts.Cache,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		textFields:   opts.TextFields,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type hit struct {
	DocID   int      `json:"doc_id"`
	Score   float64  `json:"score"`
	URL     string   `json:"url"`
	Title   string   `json:"title,omitempty"`
	Text    string   `json:"text"`
	Source  string   `json:"source,omitempty"`
	Objects []string `json:"detected_objects,omitempty"`
}

type searchResponse struct {
	Query      string         `json:"query"`
	Terms      []string       `json:"terms"`
	Mode       string         `json:"mode"`
	Generation uint64         `json:"generation,omitempty"`
	TotalHits  int            `json:"total_hits"`
	Returned   int            `json:"returned"`
	Results    []hit          `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	CacheHit   bool           `json:"cache_hit"`
	LatencyMs  int64          `json:"latency_ms"`
}

// Search answers GET /api/v1/search?q=&limit=. A query without searchable
// terms is not an error and yields no results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeAppError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", limitStr), "")
			return
		}
		limit = min(parsed, h.maxResults)
	}

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	search := func() (*executor.SearchResult, error) {
		return h.searcher.Search(ctx, query, limit)
	}
	if h.cache != nil && h.engine != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, h.engine.Generation(), search)
	} else {
		result, err = search()
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}

	resp := searchResponse{
		Query:      query,
		Terms:      result.Terms,
		Mode:       result.Mode,
		Generation: result.Generation,
		TotalHits:  result.TotalHits,
		Returned:   len(result.Results),
		Results:    make([]hit, 0, len(result.Results)),
		TermStats:  result.TermStats,
		CacheHit:   cacheHit,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	for _, res := range result.Results {
		resp.Results = append(resp.Results, h.toHit(res))
	}

	log.Info("search completed",
		"query", query,
		"limit", limit,
		"total_hits", resp.TotalHits,
		"returned", resp.Returned,
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) toHit(res executor.Result) hit {
	d := res.Document
	text := d.AltText
	if text == "" {
		text = d.Caption
	}
	if text == "" {
		text = d.Context
	}
	return hit{
		DocID:   res.DocID,
		Score:   res.Score,
		URL:     d.URL,
		Title:   d.Title,
		Text:    text,
		Source:  d.Source,
		Objects: d.DetectedObjects,
	}
}

type indexStats struct {
	Mode         string    `json:"mode"`
	Generation   uint64    `json:"generation,omitempty"`
	Documents    int       `json:"documents"`
	Terms        int       `json:"terms"`
	TotalTokens  int64     `json:"total_tokens"`
	AvgDocLength float64   `json:"avg_doc_length"`
	BuiltAt      time.Time `json:"built_at,omitzero"`
	BuildTimeMs  int64     `json:"build_time_ms"`
	TextFields   []string  `json:"text_fields"`
	AlnumOnly    bool      `json:"alnum_only"`
}

// IndexStats reports the shape of the served index. In ephemeral mode there
// is no standing index and only the mode is reported.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		h.writeJSON(w, http.StatusOK, indexStats{Mode: h.searcher.Mode(), TextFields: h.textFields})
		return
	}
	snap := h.engine.Current()
	if snap == nil {
		h.writeAppError(w, apperrors.ErrIndexNotReady, "index not ready")
		return
	}
	h.writeJSON(w, http.StatusOK, indexStats{
		Mode:         h.searcher.Mode(),
		Generation:   snap.Generation,
		Documents:    snap.Index.DocCount(),
		Terms:        snap.Index.TermCount(),
		TotalTokens:  snap.Index.TotalTokens(),
		AvgDocLength: snap.Index.AvgDocLength(),
		BuiltAt:      snap.BuiltAt,
		BuildTimeMs:  snap.BuildTime.Milliseconds(),
		TextFields:   snap.Corpus.TextFields(),
		AlnumOnly:    snap.Index.Policy().AlnumOnly,
	})
}

type refreshRequest struct {
	Documents []corpus.Document `json:"documents"`
}

// Refresh answers POST /api/v1/index/refresh. An empty body re-reads the
// configured corpus source; a body of {"documents": [...]} replaces the
// corpus with the given documents.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		h.writeError(w, http.StatusConflict, fmt.Sprintf("refresh is not available in %s mode", h.searcher.Mode()))
		return
	}
	var req refreshRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRefreshBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeAppError(w, fmt.Errorf("%w: refresh body: %v", apperrors.ErrInvalidInput, err), "")
		return
	}

	snap, err := h.refresher.Refresh(r.Context(), req.Documents, refresh.TriggerHTTP)
	if err != nil {
		logger.FromContext(r.Context()).Error("index refresh failed", "error", err)
		h.writeAppError(w, err, "index refresh failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "refreshed",
		"generation":    snap.Generation,
		"documents":     snap.Index.DocCount(),
		"terms":         snap.Index.TermCount(),
		"build_time_ms": snap.BuildTime.Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status code. Server-side failures get the
// generic message; client errors echo the cause.
func (h *Handler) writeAppError(w http.ResponseWriter, err error, generic string) {
	status := apperrors.HTTPStatusCode(err)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	msg := generic
	if status < 500 {
		msg = err.Error()
	}
	h.writeError(w, status, msg)
}
