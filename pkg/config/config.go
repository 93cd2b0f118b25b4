// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Search, Corpus, Cache, etc.).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Index lifecycle modes.
const (
	ModePersistent = "persistent"
	ModeEphemeral  = "ephemeral"
)

// Corpus sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Search   SearchConfig   `yaml:"search"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Kafka is only used to
// trigger refreshes of a persistent index, so it is off by default.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CorpusRefresh string `yaml:"corpusRefresh"`
	IndexBuilt    string `yaml:"indexBuilt"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls ranking parameters, tokenizer policy, result limits,
// and the index lifecycle mode.
type SearchConfig struct {
	Mode         string   `yaml:"mode"`
	K1           float64  `yaml:"k1"`
	B            float64  `yaml:"b"`
	DefaultLimit int      `yaml:"defaultLimit"`
	MaxResults   int      `yaml:"maxResults"`
	AlnumOnly    bool     `yaml:"alnumOnly"`
	TextFields   []string `yaml:"textFields"`
}

// CorpusConfig selects where documents come from. RefreshInterval > 0
// reloads a persistent index periodically; LoadAttempts and LoadBackoff
// govern retries of the start-up load.
type CorpusConfig struct {
	Source          string        `yaml:"source"`
	Path            string        `yaml:"path"`
	Table           string        `yaml:"table"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	LoadAttempts    int           `yaml:"loadAttempts"`
	LoadBackoff     time.Duration `yaml:"loadBackoff"`
}

// CacheConfig selects the query result cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Size    int    `yaml:"size"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "imagesearch",
			User:            "imagesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "imagesearch-group",
			Topics: KafkaTopics{
				CorpusRefresh: "corpus-refresh",
				IndexBuilt:    "index-built",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			Mode:         ModePersistent,
			K1:           1.5,
			B:            0.75,
			DefaultLimit: 10,
			MaxResults:   100,
			AlnumOnly:    true,
			TextFields:   []string{"title", "alt_text", "caption"},
		},
		Corpus: CorpusConfig{
			Source:       SourceFile,
			Path:         "image_data/metadata.jsonl",
			Table:        "images",
			LoadAttempts: 5,
			LoadBackoff:  500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Size:    1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations that would silently produce nonsensical
// rankings or an unusable service.
func (c *Config) Validate() error {
	s := c.Search
	switch {
	case math.IsNaN(s.K1) || math.IsInf(s.K1, 0) || s.K1 < 0:
		return invalid("search.k1 must be a finite non-negative number, got %v", s.K1)
	case math.IsNaN(s.B) || s.B < 0 || s.B > 1:
		return invalid("search.b must be within [0, 1], got %v", s.B)
	case s.Mode != ModePersistent && s.Mode != ModeEphemeral:
		return invalid("search.mode must be %q or %q, got %q", ModePersistent, ModeEphemeral, s.Mode)
	case len(s.TextFields) == 0:
		return invalid("search.textFields must name at least one field")
	case s.DefaultLimit <= 0:
		return invalid("search.defaultLimit must be positive, got %d", s.DefaultLimit)
	case s.MaxResults < s.DefaultLimit:
		return invalid("search.maxResults (%d) must be >= search.defaultLimit (%d)", s.MaxResults, s.DefaultLimit)
	}
	switch c.Corpus.Source {
	case SourceFile:
		if c.Corpus.Path == "" {
			return invalid("corpus.path is required for the file source")
		}
	case SourcePostgres:
		if c.Corpus.Table == "" {
			return invalid("corpus.table is required for the postgres source")
		}
	default:
		return invalid("corpus.source must be %q or %q, got %q", SourceFile, SourcePostgres, c.Corpus.Source)
	}
	switch c.Cache.Backend {
	case CacheRedis, CacheNone:
	case CacheMemory:
		if c.Cache.Size <= 0 {
			return invalid("cache.size must be positive for the memory backend")
		}
	default:
		return invalid("cache.backend must be one of redis, memory, none; got %q", c.Cache.Backend)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// applyEnvOverrides reads IS_* environment variables and overrides the
// corresponding config fields. Unparseable numeric values are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IS_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("IS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IS_SEARCH_MODE"); v != "" {
		cfg.Search.Mode = v
	}
	if v := os.Getenv("IS_SEARCH_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.K1 = k1
		}
	}
	if v := os.Getenv("IS_SEARCH_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.B = b
		}
	}
	if v := os.Getenv("IS_SEARCH_TEXT_FIELDS"); v != "" {
		cfg.Search.TextFields = strings.Split(v, ",")
	}
	if v := os.Getenv("IS_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("IS_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("IS_CORPUS_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Corpus.RefreshInterval = d
		}
	}
	if v := os.Getenv("IS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("IS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
