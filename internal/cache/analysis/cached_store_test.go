package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysisrepo "savedanalysis/internal/gateway/repository/analysis"
)

type countingStore struct {
	*analysisrepo.MemoryStore
	gets  atomic.Int32
	lists atomic.Int32
	fail  error
}

func (s *countingStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.gets.Add(1)
	if s.fail != nil {
		return nil, s.fail
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *countingStore) List(ctx context.Context) ([]string, error) {
	s.lists.Add(1)
	return s.MemoryStore.List(ctx)
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: analysisrepo.NewMemoryStore()}
	require.NoError(t, origin.MemoryStore.Put(ctx, "a", []byte("one")))

	cs := NewCachedStore(origin, DefaultCacheConfig())
	for i := 0; i < 3; i++ {
		b, err := cs.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "one", string(b))
	}
	assert.Equal(t, int32(1), origin.gets.Load())

	m := cs.Metrics()
	assert.Equal(t, uint64(2), m.DocHits)
	assert.Equal(t, uint64(1), m.DocMisses)
	assert.Equal(t, uint64(1), m.OriginReads)
}

func TestCachedStoreWriteThroughInvalidatesList(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: analysisrepo.NewMemoryStore()}
	cs := NewCachedStore(origin, DefaultCacheConfig())

	require.NoError(t, cs.Put(ctx, "a", []byte("one")))
	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
	_, _ = cs.List(ctx)
	assert.Equal(t, int32(1), origin.lists.Load())

	require.NoError(t, cs.Put(ctx, "b", []byte("two")))
	ids, err = cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, int32(2), origin.lists.Load())

	b, err := cs.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	assert.Equal(t, int32(0), origin.gets.Load())
}

func TestCachedStoreExpires(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: analysisrepo.NewMemoryStore()}
	require.NoError(t, origin.MemoryStore.Put(ctx, "a", []byte("one")))
	cs := NewCachedStore(origin, CacheConfig{DocTTL: 20 * time.Millisecond, DocMaxEntries: 4})

	_, err := cs.Get(ctx, "a")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = cs.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), origin.gets.Load())
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: analysisrepo.NewMemoryStore(), fail: errors.New("boom")}
	cs := NewCachedStore(origin, DefaultCacheConfig())

	_, err := cs.Get(ctx, "a")
	require.Error(t, err)
	_, err = cs.Get(ctx, "a")
	require.Error(t, err)
	assert.Equal(t, int32(2), origin.gets.Load())
	assert.Equal(t, uint64(2), cs.Metrics().OriginReadErr)
}

func TestCachedStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: analysisrepo.NewMemoryStore()}
	require.NoError(t, origin.MemoryStore.Put(ctx, "a", []byte("one")))
	cs := NewCachedStore(origin, DefaultCacheConfig())

	_, _ = cs.Get(ctx, "a")
	require.NoError(t, origin.MemoryStore.Put(ctx, "a", []byte("changed")))
	cs.Invalidate("a")
	b, err := cs.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", string(b))
}
