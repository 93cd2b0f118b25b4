package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus/pgstore"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/refresh"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := ranker.Params{K1: cfg.Search.K1, B: cfg.Search.B}
	if err := params.Validate(); err != nil {
		return err
	}
	policy := tokenizer.Policy{AlnumOnly: cfg.Search.AlnumOnly}
	retryCfg := resilience.RetryConfig{MaxAttempts: cfg.Corpus.LoadAttempts, InitialDelay: cfg.Corpus.LoadBackoff}

	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"mode", cfg.Search.Mode,
		"corpus_source", cfg.Corpus.Source,
		"text_fields", cfg.Search.TextFields,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	var provider corpus.Provider
	switch cfg.Corpus.Source {
	case config.SourcePostgres:
		db, err := resilience.Do(ctx, "postgres connect", retryCfg, func(ctx context.Context) (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		store := pgstore.New(db, cfg.Corpus.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		provider = store
		checker.RegisterPing("postgres", true, db.Ping)
	default:
		provider = corpus.FileProvider{Path: cfg.Corpus.Path}
	}

	var (
		searcher   executor.Searcher
		engine     *indexer.Engine
		refresher  handler.Refresher
		queryCache *cache.QueryCache
	)
	switch cfg.Search.Mode {
	case config.ModeEphemeral:
		searcher = executor.NewEphemeral(provider, executor.EphemeralOptions{
			Policy:     policy,
			TextFields: cfg.Search.TextFields,
			Params:     params,
			Metrics:    m,
		})
		if cfg.Cache.Backend != config.CacheNone {
			slog.Info("result cache not used in ephemeral mode", "backend", cfg.Cache.Backend)
		}
	default:
		docs, err := loadInitialCorpus(ctx, provider, retryCfg)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}
		engine = indexer.NewEngine(docs, indexer.Options{
			Policy:     policy,
			TextFields: cfg.Search.TextFields,
			Provider:   provider,
			Metrics:    m,
		})
		searcher = executor.NewPersistent(engine, params, m)

		queryCache, err = newQueryCache(ctx, cfg, m, checker)
		if err != nil {
			return err
		}

		var publisher refresh.Publisher
		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt)
			defer producer.Close()
			publisher = producer
		}
		var invalidator refresh.Invalidator
		if queryCache != nil {
			invalidator = queryCache
		}
		svc := refresh.New(engine, publisher, invalidator, m)
		refresher = svc
		svc.StartInterval(ctx, cfg.Corpus.RefreshInterval)

		if cfg.Kafka.Enabled {
			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusRefresh, svc.HandleMessage)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("refresh consumer error", "error", err)
				}
			}()
			slog.Info("kafka refresh consumer started",
				"topic", cfg.Kafka.Topics.CorpusRefresh,
				"announce_topic", cfg.Kafka.Topics.IndexBuilt,
			)
		}
	}

	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if engine == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "ephemeral mode"}
		}
		snap := engine.Current()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents", snap.Generation, snap.Index.DocCount()),
		}
	})

	h := handler.New(handler.Options{
		Searcher:     searcher,
		Engine:       engine,
		Refresher:    refresher,
		Cache:        queryCache,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		TextFields:   cfg.Search.TextFields,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// newQueryCache builds the configured result cache. An unreachable Redis
// disables caching rather than failing start-up.
// loadInitialCorpus retries provider failures; content that cannot be
// decoded fails on the first attempt.
func loadInitialCorpus(ctx context.Context, provider corpus.Provider, cfg resilience.RetryConfig) ([]corpus.Document, error) {
	return resilience.Do(ctx, "initial corpus load", cfg, func(ctx context.Context) ([]corpus.Document, error) {
		docs, err := provider.Documents(ctx, "")
		if errors.Is(err, apperrors.ErrMalformedCorpus) {
			return nil, resilience.Permanent(err)
		}
		return docs, err
	})
}

func newQueryCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "addr", cfg.Redis.Addr, "error", err)
			return nil, nil
		}
		checker.RegisterPing("redis", false, client.Ping)
		slog.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		return cache.New(client, cfg.Redis.CacheTTL, m), nil
	case config.CacheMemory:
		store, err := cache.NewLocalStore(cfg.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("creating local cache: %w", err)
		}
		slog.Info("search cache enabled", "backend", "memory", "size", cfg.Cache.Size, "ttl", cfg.Redis.CacheTTL)
		return cache.New(store, cfg.Redis.CacheTTL, m), nil
	default:
		return nil, nil
	}
}
