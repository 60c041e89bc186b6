package study

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_study/internal/engine"
)

type countingRepo struct {
	*memRepo
	finds int
}

func (c *countingRepo) FindByVideo(ctx context.Context, videoID, ownerID string) (*engine.SummaryRecord, error) {
	c.finds++
	return c.memRepo.FindByVideo(ctx, videoID, ownerID)
}

func newTestCache(t *testing.T, redisURL string) *engine.TieredCache {
	t.Helper()
	c := engine.NewTieredCache(redisURL, time.Minute, 100, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachedRepositoryHit(t *testing.T) {
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, newTestCache(t, ""))
	ctx := context.Background()
	rec := sampleRecord("id-1", "vid00000001", "alice", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	inner.put(rec)

	first, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)
	second, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.finds, "second lookup served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, rec, second)
}

func TestCachedRepositoryMissIsNotCached(t *testing.T) {
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, newTestCache(t, ""))
	ctx := context.Background()

	_, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = repo.FindByVideo(ctx, "vid00000001", "alice")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	assert.Equal(t, 2, inner.finds)
}

func TestCachedRepositoryInsertWritesThrough(t *testing.T) {
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, newTestCache(t, ""))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleRecord("id-1", "vid00000001", "alice", time.Now())))
	got, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Zero(t, inner.finds)

	err = repo.Insert(ctx, sampleRecord("id-2", "vid00000001", "alice", time.Now()))
	assert.ErrorIs(t, err, engine.ErrDuplicate)
}

func TestCachedRepositoryDeleteEvicts(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, newTestCache(t, "redis://"+mr.Addr()))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleRecord("id-1", "vid00000001", "alice", time.Now())))
	key := summaryCacheKey("vid00000001", "alice")
	assert.True(t, mr.Exists(key), "record written to L2")

	require.NoError(t, repo.Delete(ctx, "id-1"))
	assert.False(t, mr.Exists(key))

	_, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	assert.Equal(t, 1, inner.finds)

	assert.ErrorIs(t, repo.Delete(ctx, "id-1"), engine.ErrNotFound)
}

func TestCachedRepositoryDropsCorruptEntry(t *testing.T) {
	cache := newTestCache(t, "")
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, cache)
	ctx := context.Background()
	inner.put(sampleRecord("id-1", "vid00000001", "alice", time.Now()))

	cache.Set(ctx, summaryCacheKey("vid00000001", "alice"), []byte("{not json"))

	got, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, 1, inner.finds)
}

func TestCachedRepositoryNilCache(t *testing.T) {
	inner := &countingRepo{memRepo: newMemRepo()}
	repo := NewCachedRepository(inner, nil)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleRecord("id-1", "vid00000001", "alice", time.Now())))
	_, err := repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)
	_, err = repo.FindByVideo(ctx, "vid00000001", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.finds)
	require.NoError(t, repo.Delete(ctx, "id-1"))
}
