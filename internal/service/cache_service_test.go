package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type fakeCacheStore struct {
	entries map[string][]byte
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string][]byte{}}
}

func (f *fakeCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func newCacheServiceForTest(store *fakeCacheStore) *CacheService {
	return NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
}

func TestCacheServiceProgressRoundTrip(t *testing.T) {
	store := newFakeCacheStore()
	cache := newCacheServiceForTest(store)
	ctx := context.Background()

	require.Nil(t, cache.GetProgress(ctx, "s1"))

	progress := &models.StudentProgress{StudentID: "s1", RecordedLessons: 6}
	require.NoError(t, cache.StoreProgress(ctx, progress))

	cached := cache.GetProgress(ctx, "s1")
	require.NotNil(t, cached)
	assert.Equal(t, "s1", cached.StudentID)
	assert.Equal(t, 6, cached.RecordedLessons)
}

func TestCacheServiceDropProgressExactKey(t *testing.T) {
	store := newFakeCacheStore()
	cache := newCacheServiceForTest(store)
	ctx := context.Background()

	require.NoError(t, cache.StoreProgress(ctx, &models.StudentProgress{StudentID: "s1"}))
	require.NoError(t, cache.StoreProgress(ctx, &models.StudentProgress{StudentID: "s12"}))

	require.NoError(t, cache.DropProgress(ctx, "s1"))

	assert.Nil(t, cache.GetProgress(ctx, "s1"))
	// Sibling IDs sharing a prefix keep their entries.
	require.NotNil(t, cache.GetProgress(ctx, "s12"))
}

func TestCacheServiceDisabledNoops(t *testing.T) {
	var cache *CacheService
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.Nil(t, cache.GetProgress(ctx, "s1"))
	assert.NoError(t, cache.StoreProgress(ctx, &models.StudentProgress{StudentID: "s1"}))
	assert.NoError(t, cache.DropProgress(ctx, "s1"))
}
