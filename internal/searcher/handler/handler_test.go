package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/refresh"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/ranker"
)

var testPolicy = tokenizer.Policy{AlnumOnly: true}

func images() []corpus.Document {
	return []corpus.Document{
		{URL: "https://img.example/0.jpg", Title: "cat dog", AltText: "a cat next to a dog"},
		{URL: "https://img.example/1.jpg", Title: "dog dog cat", Caption: "two dogs and a cat"},
	}
}

type fixture struct {
	engine *indexer.Engine
	cache  *cache.QueryCache
	mux    *http.ServeMux
}

func newPersistentFixture(t *testing.T, provider corpus.Provider, withCache bool) *fixture {
	t.Helper()
	engine := indexer.NewEngine(images(), indexer.Options{
		Policy:     testPolicy,
		TextFields: []string{corpus.FieldTitle},
		Provider:   provider,
	})
	var qc *cache.QueryCache
	var inv refresh.Invalidator
	if withCache {
		store, err := cache.NewLocalStore(32)
		require.NoError(t, err)
		qc = cache.New(store, time.Minute, nil)
		inv = qc
	}
	h := New(Options{
		Searcher:     executor.NewPersistent(engine, ranker.DefaultParams(), nil),
		Engine:       engine,
		Refresher:    refresh.New(engine, nil, inv, nil),
		Cache:        qc,
		DefaultLimit: 10,
		MaxResults:   50,
		TextFields:   []string{corpus.FieldTitle},
	})
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{engine: engine, cache: qc, mux: mux}
}

func do(t *testing.T, mux *http.ServeMux, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestSearch_RanksAndResolvesDocuments(t *testing.T) {
	f := newPersistentFixture(t, nil, false)

	rec, body := do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, float64(1), first["doc_id"])
	assert.Equal(t, "https://img.example/1.jpg", first["url"])
	assert.Equal(t, "two dogs and a cat", first["text"])
	assert.InDelta(t, 0.2447, first["score"].(float64), 1e-3)
	second := results[1].(map[string]any)
	assert.Equal(t, "a cat next to a dog", second["text"])
	assert.Equal(t, "persistent", body["mode"])
	assert.Equal(t, float64(2), body["total_hits"])
}

func TestSearch_EmptyQueryIsNotAnError(t *testing.T) {
	f := newPersistentFixture(t, nil, false)
	for _, target := range []string{"/api/v1/search", "/api/v1/search?q=", "/api/v1/search?q=%20%20"} {
		rec, body := do(t, f.mux, http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, body["results"], target)
	}
}

func TestSearch_Limit(t *testing.T) {
	f := newPersistentFixture(t, nil, false)

	_, body := do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog&limit=1", "")
	assert.Len(t, body["results"], 1)

	_, body = do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog&limit=500", "")
	assert.Len(t, body["results"], 2)

	for _, bad := range []string{"0", "-1", "ten"} {
		rec, _ := do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog&limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSearch_CacheHitOnRepeat(t *testing.T) {
	f := newPersistentFixture(t, nil, true)

	_, body := do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog", "")
	assert.Equal(t, false, body["cache_hit"])
	_, body = do(t, f.mux, http.MethodGet, "/api/v1/search?q=DOG", "")
	assert.Equal(t, true, body["cache_hit"])
	assert.Equal(t, "DOG", body["query"])

	_, body = do(t, f.mux, http.MethodGet, "/api/v1/cache/stats", "")
	assert.Equal(t, float64(1), body["hits"])
	assert.Equal(t, float64(1), body["misses"])
}

func TestRefresh_InlineDocumentsChangeResults(t *testing.T) {
	f := newPersistentFixture(t, nil, true)
	do(t, f.mux, http.MethodGet, "/api/v1/search?q=bird", "")

	rec, body := do(t, f.mux, http.MethodPost, "/api/v1/index/refresh",
		`{"documents":[{"url":"u0","title":"bird"},{"url":"u1","title":"fish"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["generation"])

	_, body = do(t, f.mux, http.MethodGet, "/api/v1/search?q=bird", "")
	assert.Equal(t, false, body["cache_hit"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "u0", results[0].(map[string]any)["url"])
}

func TestRefresh_EmptyBodyReloadsFromProvider(t *testing.T) {
	f := newPersistentFixture(t, corpus.StaticProvider{{URL: "p0", Title: "zebra"}}, false)

	rec, _ := do(t, f.mux, http.MethodPost, "/api/v1/index/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := do(t, f.mux, http.MethodGet, "/api/v1/search?q=zebra", "")
	assert.Len(t, body["results"], 1)
}

func TestRefresh_Errors(t *testing.T) {
	f := newPersistentFixture(t, nil, false)

	rec, _ := do(t, f.mux, http.MethodPost, "/api/v1/index/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, f.mux, http.MethodPost, "/api/v1/index/refresh", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := corpus.ProviderFunc(func(ctx context.Context, query string) ([]corpus.Document, error) {
		return nil, errors.New("disk gone")
	})
	f = newPersistentFixture(t, failing, false)
	rec, body := do(t, f.mux, http.MethodPost, "/api/v1/index/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "index refresh failed", body["error"])
	assert.Equal(t, uint64(1), f.engine.Generation())
}

func TestIndexStats(t *testing.T) {
	f := newPersistentFixture(t, nil, false)

	rec, body := do(t, f.mux, http.MethodGet, "/api/v1/index/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["documents"])
	assert.Equal(t, float64(2), body["terms"])
	assert.Equal(t, float64(5), body["total_tokens"])
	assert.Equal(t, 2.5, body["avg_doc_length"])
	assert.Equal(t, float64(1), body["generation"])
	assert.Equal(t, true, body["alnum_only"])
}

func TestEphemeralMode(t *testing.T) {
	calls := 0
	provider := corpus.ProviderFunc(func(ctx context.Context, query string) ([]corpus.Document, error) {
		calls++
		return images(), nil
	})
	h := New(Options{
		Searcher: executor.NewEphemeral(provider, executor.EphemeralOptions{
			Policy:     testPolicy,
			TextFields: []string{corpus.FieldTitle},
			Params:     ranker.DefaultParams(),
		}),
		DefaultLimit: 10,
		MaxResults:   50,
		TextFields:   []string{corpus.FieldTitle},
	})
	mux := http.NewServeMux()
	h.Register(mux)

	_, body := do(t, mux, http.MethodGet, "/api/v1/search?q=dog", "")
	assert.Len(t, body["results"], 2)
	assert.Equal(t, "ephemeral", body["mode"])
	do(t, mux, http.MethodGet, "/api/v1/search?q=dog", "")
	assert.Equal(t, 2, calls)

	_, body = do(t, mux, http.MethodGet, "/api/v1/index/stats", "")
	assert.Equal(t, "ephemeral", body["mode"])

	rec, _ := do(t, mux, http.MethodPost, "/api/v1/index/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, body = do(t, mux, http.MethodGet, "/api/v1/cache/stats", "")
	assert.Equal(t, "disabled", body["status"])
}

func TestSearch_ProviderFailureIsServerError(t *testing.T) {
	provider := corpus.ProviderFunc(func(ctx context.Context, query string) ([]corpus.Document, error) {
		return nil, errors.New("upstream down")
	})
	h := New(Options{
		Searcher:     executor.NewEphemeral(provider, executor.EphemeralOptions{Policy: testPolicy, Params: ranker.DefaultParams()}),
		DefaultLimit: 10,
		MaxResults:   50,
	})
	mux := http.NewServeMux()
	h.Register(mux)

	rec, body := do(t, mux, http.MethodGet, "/api/v1/search?q=dog", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "search failed", body["error"])
}

func TestCacheInvalidate(t *testing.T) {
	f := newPersistentFixture(t, nil, true)
	do(t, f.mux, http.MethodGet, "/api/v1/search?q=dog", "")

	rec, body := do(t, f.mux, http.MethodPost, "/api/v1/cache/invalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["keys_deleted"])

	f = newPersistentFixture(t, nil, false)
	rec, _ = do(t, f.mux, http.MethodPost, "/api/v1/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
