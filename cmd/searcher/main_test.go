package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/resilience"
)

var fastRetry = resilience.RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestLoadInitialCorpus_MalformedFileFailsWithoutRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"title\": \n"), 0o644))

	calls := 0
	provider := corpus.ProviderFunc(func(ctx context.Context, query string) ([]corpus.Document, error) {
		calls++
		return corpus.FileProvider{Path: path}.Documents(ctx, query)
	})

	_, err := loadInitialCorpus(context.Background(), provider, fastRetry)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
	assert.Equal(t, 1, calls)
}

func TestLoadInitialCorpus_RetriesTransientFailures(t *testing.T) {
	calls := 0
	provider := corpus.ProviderFunc(func(ctx context.Context, query string) ([]corpus.Document, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return []corpus.Document{{Title: "red fox"}}, nil
	})

	docs, err := loadInitialCorpus(context.Background(), provider, fastRetry)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 3, calls)
}
