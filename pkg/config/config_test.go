package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ModePersistent, cfg.Search.Mode)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Search.AlnumOnly)
	assert.Equal(t, []string{"title", "alt_text", "caption"}, cfg.Search.TextFields)
	assert.Equal(t, SourceFile, cfg.Corpus.Source)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
search:
  mode: ephemeral
  k1: 1.2
  textFields: [title]
cache:
  backend: none
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeEphemeral, cfg.Search.Mode)
	assert.Equal(t, 1.2, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B, "unset keys keep their defaults")
	assert.Equal(t, []string{"title"}, cfg.Search.TextFields)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IS_SEARCH_MODE", "ephemeral")
	t.Setenv("IS_SEARCH_B", "0.5")
	t.Setenv("IS_SEARCH_TEXT_FIELDS", "caption,title")
	t.Setenv("IS_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("IS_CORPUS_REFRESH_INTERVAL", "5m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeEphemeral, cfg.Search.Mode)
	assert.Equal(t, 0.5, cfg.Search.B)
	assert.Equal(t, []string{"caption", "title"}, cfg.Search.TextFields)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Corpus.RefreshInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsBadRankingParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative k1", func(c *Config) { c.Search.K1 = -0.1 }},
		{"b above one", func(c *Config) { c.Search.B = 1.01 }},
		{"negative b", func(c *Config) { c.Search.B = -0.5 }},
		{"unknown mode", func(c *Config) { c.Search.Mode = "sometimes" }},
		{"no text fields", func(c *Config) { c.Search.TextFields = nil }},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 5 }},
		{"unknown source", func(c *Config) { c.Corpus.Source = "s3" }},
		{"file without path", func(c *Config) { c.Corpus.Path = "" }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"memory cache without size", func(c *Config) { c.Cache.Size = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}

func TestValidate_AcceptsBoundaryValues(t *testing.T) {
	cfg := Default()
	cfg.Search.K1 = 0
	cfg.Search.B = 1
	assert.NoError(t, cfg.Validate())

	cfg.Search.B = 0
	assert.NoError(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Postgres
	assert.Equal(t,
		"host=localhost port=5432 user=imagesearch password=localdev dbname=imagesearch sslmode=disable",
		p.DSN(),
	)
}
