package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is a byte-oriented key/value backend with expiry. *redis.Client
// satisfies it, as does LocalStore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// LocalStore is an in-process, size-bounded LRU store for single-instance
// deployments.
type LocalStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, localEntry]
	now   func() time.Time
}

// NewLocalStore creates a store holding at most size entries.
func NewLocalStore(size int) (*LocalStore, error) {
	c, err := lru.New[string, localEntry](size)
	if err != nil {
		return nil, err
	}
	return &LocalStore{cache: c, now: time.Now}, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.cache.Remove(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := localEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.cache.Add(key, e)
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) && s.cache.Remove(k) {
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of entries, including expired ones not yet evicted.
func (s *LocalStore) Len() int {
	return s.cache.Len()
}
