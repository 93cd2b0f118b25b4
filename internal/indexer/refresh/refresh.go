// Package refresh coordinates rebuilds of the persistent index. A refresh can
// be requested over HTTP, by a Kafka message or by the reload ticker; each
// successful rebuild drops stale cached results and announces the new
// generation.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Image-Search-Engine/pkg/metrics"
)

// Refresh triggers.
const (
	TriggerHTTP     = "http"
	TriggerKafka    = "kafka"
	TriggerInterval = "interval"
)

// Event is a request to rebuild the index. When Documents is nil the corpus
// is re-read from the engine's provider; otherwise Documents (possibly empty)
// becomes the new corpus.
type Event struct {
	RequestedBy string            `json:"requested_by,omitempty"`
	Documents   []corpus.Document `json:"documents"`
	Timestamp   time.Time         `json:"timestamp"`
}

// BuiltEvent announces a newly published index generation.
type BuiltEvent struct {
	Generation   uint64    `json:"generation"`
	Documents    int       `json:"documents"`
	Terms        int       `json:"terms"`
	AvgDocLength float64   `json:"avg_doc_length"`
	BuildTimeMs  int64     `json:"build_time_ms"`
	Trigger      string    `json:"trigger"`
	BuiltAt      time.Time `json:"built_at"`
}

// Publisher sends a keyed JSON value. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Invalidator drops cached results. *cache.QueryCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type Service struct {
	engine      *indexer.Engine
	publisher   Publisher
	invalidator Invalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a Service. publisher and invalidator may be nil.
func New(engine *indexer.Engine, publisher Publisher, invalidator Invalidator, m *metrics.Metrics) *Service {
	return &Service{
		engine:      engine,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		logger:      slog.Default().With("component", "index-refresh"),
	}
}

// Refresh rebuilds the index from docs, or from the provider when docs is
// nil. Failing to invalidate the cache or publish the announcement is logged
// but does not fail the refresh: cache keys carry the generation, so stale
// entries can no longer be hit.
func (s *Service) Refresh(ctx context.Context, docs []corpus.Document, trigger string) (*indexer.Snapshot, error) {
	var (
		snap *indexer.Snapshot
		err  error
	)
	if docs == nil {
		snap, err = s.engine.Reload(ctx)
	} else {
		snap = s.engine.Refresh(docs)
	}
	s.metrics.ObserveRefresh(trigger, err)
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		if _, err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after refresh failed", "generation", snap.Generation, "error", err)
		}
	}
	if s.publisher != nil {
		event := BuiltEvent{
			Generation:   snap.Generation,
			Documents:    snap.Index.DocCount(),
			Terms:        snap.Index.TermCount(),
			AvgDocLength: snap.Index.AvgDocLength(),
			BuildTimeMs:  snap.BuildTime.Milliseconds(),
			Trigger:      trigger,
			BuiltAt:      snap.BuiltAt,
		}
		if err := s.publisher.Publish(ctx, strconv.FormatUint(snap.Generation, 10), event); err != nil {
			s.logger.Warn("publishing index-built event failed", "generation", snap.Generation, "error", err)
		}
	}
	s.logger.Info("index refreshed", "trigger", trigger, "generation", snap.Generation)
	return snap, nil
}

// HandleMessage is a kafka.MessageHandler for corpus refresh requests.
func (s *Service) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[Event](value)
	if err != nil {
		return err
	}
	s.logger.Info("refresh requested",
		"requested_by", event.RequestedBy,
		"inline_documents", event.Documents != nil,
	)
	if _, err := s.Refresh(ctx, event.Documents, TriggerKafka); err != nil {
		return fmt.Errorf("refreshing index: %w", err)
	}
	return nil
}

// StartInterval reloads from the provider every interval until ctx is
// cancelled. Failed reloads keep the current index and are retried on the
// next tick.
func (s *Service) StartInterval(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !s.engine.HasProvider() {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		s.logger.Info("periodic refresh started", "interval", interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("periodic refresh stopping")
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx, nil, TriggerInterval); err != nil {
					s.logger.Error("periodic refresh failed", "error", err)
				}
			}
		}
	}()
}
