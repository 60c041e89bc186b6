package study

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// CachedRepository puts a tiered cache in front of (video, owner) lookups.
// Inserts write through; deletes evict.
type CachedRepository struct {
	Repository
	cache *engine.TieredCache
}

// NewCachedRepository wraps repo. A nil cache disables caching.
func NewCachedRepository(repo Repository, cache *engine.TieredCache) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache}
}

func summaryCacheKey(videoID, ownerID string) string {
	return engine.CacheKey("summary", videoID, ownerID)
}

func (c *CachedRepository) FindByVideo(ctx context.Context, videoID, ownerID string) (*engine.SummaryRecord, error) {
	key := summaryCacheKey(videoID, ownerID)
	if data, ok := c.cache.Get(ctx, key); ok {
		var rec engine.SummaryRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		c.cache.Delete(ctx, key) // corrupt
	}

	rec, err := c.Repository.FindByVideo(ctx, videoID, ownerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rec)
	return rec, nil
}

func (c *CachedRepository) Insert(ctx context.Context, rec *engine.SummaryRecord) error {
	if err := c.Repository.Insert(ctx, rec); err != nil {
		return err
	}
	c.store(ctx, rec)
	return nil
}

func (c *CachedRepository) Delete(ctx context.Context, id string) error {
	rec, err := c.Repository.Get(ctx, id)
	if err != nil && !errors.Is(err, engine.ErrNotFound) {
		return err
	}
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	if rec != nil {
		c.cache.Delete(ctx, summaryCacheKey(rec.VideoID, rec.OwnerID))
	}
	return nil
}

func (c *CachedRepository) store(ctx context.Context, rec *engine.SummaryRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Debug("summary cache: encode failed", slog.Any("error", err))
		return
	}
	c.cache.Set(ctx, summaryCacheKey(rec.VideoID, rec.OwnerID), data)
}
