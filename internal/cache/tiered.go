package cache

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

// TieredCache checks a fast local cache before a shared remote one and back-fills the
// local tier on remote hits.
type TieredCache struct {
	local  domain.ResultCache
	remote domain.ResultCache
}

// NewTieredCache creates a two-tier cache. remote may be nil.
func NewTieredCache(local, remote domain.ResultCache) *TieredCache {
	return &TieredCache{local: local, remote: remote}
}

// Get implements domain.ResultCache.
func (c *TieredCache) Get(ctx context.Context, key string) (*domain.AnalysisResult, bool) {
	if result, ok := c.local.Get(ctx, key); ok {
		return result, true
	}
	if c.remote == nil {
		return nil, false
	}
	result, ok := c.remote.Get(ctx, key)
	if ok {
		_ = c.local.Set(ctx, key, result)
	}
	return result, ok
}

// Set implements domain.ResultCache. The local tier is always written; a remote failure
// is returned after it.
func (c *TieredCache) Set(ctx context.Context, key string, result *domain.AnalysisResult) error {
	_ = c.local.Set(ctx, key, result)
	if c.remote == nil {
		return nil
	}
	return c.remote.Set(ctx, key, result)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the result cache described by config: memory only, or memory in front of
// Redis when Redis is enabled. A Redis that cannot be reached is logged and skipped.
func New(ctx context.Context, config domain.CacheConfig, logger *logrus.Logger) (*TieredCache, io.Closer) {
	local := NewMemoryCache(config.MemorySize, config.DefaultTTL)
	if !config.RedisEnabled {
		return NewTieredCache(local, nil), nopCloser{}
	}

	remote, err := NewRedisCache(ctx, config, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis cache unavailable, using memory cache only")
		return NewTieredCache(local, nil), nopCloser{}
	}
	return NewTieredCache(local, remote), remote
}
