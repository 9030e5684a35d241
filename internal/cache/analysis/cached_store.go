package analysis

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	analysisrepo "savedanalysis/internal/gateway/repository/analysis"
)

type Store = analysisrepo.Store

type CacheConfig struct {
	DocTTL        time.Duration
	DocMaxEntries int

	ListTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DocTTL:        5 * time.Minute,
		DocMaxEntries: 1024,
		ListTTL:       30 * time.Second,
	}
}

type MetricsSnapshot struct {
	DocHits        uint64
	DocMisses      uint64
	ListHits       uint64
	ListMisses     uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	docHits        atomic.Uint64
	docMisses      atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		DocHits:        m.docHits.Load(),
		DocMisses:      m.docMisses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

const listKey = "ids"

// CachedStore is a read-through, write-through cache in front of a Store.
type CachedStore struct {
	origin Store

	docCache  *expirable.LRU[string, []byte]
	listCache *expirable.LRU[string, []string]
	metrics   Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.DocTTL <= 0 {
		cfg.DocTTL = def.DocTTL
	}
	if cfg.DocMaxEntries <= 0 {
		cfg.DocMaxEntries = def.DocMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &CachedStore{
		origin:    origin,
		docCache:  expirable.NewLRU[string, []byte](cfg.DocMaxEntries, nil, cfg.DocTTL),
		listCache: expirable.NewLRU[string, []string](1, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, id string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, id, content); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	key := strings.TrimSpace(id)
	s.docCache.Add(key, append([]byte(nil), content...))
	s.listCache.Remove(listKey)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := strings.TrimSpace(id)
	if b, ok := s.docCache.Get(key); ok {
		s.metrics.docHits.Add(1)
		return append([]byte(nil), b...), nil
	}
	s.metrics.docMisses.Add(1)
	s.metrics.originReads.Add(1)
	b, err := s.origin.Get(ctx, id)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.docCache.Add(key, append([]byte(nil), b...))
	return b, nil
}

func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	if ids, ok := s.listCache.Get(listKey); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), ids...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)
	ids, err := s.origin.List(ctx)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.listCache.Add(listKey, append([]string(nil), ids...))
	return ids, nil
}

// Invalidate drops any cached copy of id.
func (s *CachedStore) Invalidate(id string) {
	s.docCache.Remove(strings.TrimSpace(id))
	s.listCache.Remove(listKey)
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return s.metrics.snapshot()
}
