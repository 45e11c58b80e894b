// Package cache provides analysis result caches. Callers key entries by the knowledge
// base fingerprint and the SHA-256 of the variant file, so an entry never goes stale.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pharmaguard-server/internal/domain"
)

const (
	defaultMemorySize = 1000
	defaultTTL        = 24 * time.Hour
)

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.AnalysisResult]
}

// NewMemoryCache creates a memory cache holding at most size results for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = defaultMemorySize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryCache{lru: expirable.NewLRU[string, *domain.AnalysisResult](size, nil, ttl)}
}

// Get implements domain.ResultCache.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.AnalysisResult, bool) {
	return c.lru.Get(key)
}

// Set implements domain.ResultCache.
func (c *MemoryCache) Set(_ context.Context, key string, result *domain.AnalysisResult) error {
	c.lru.Add(key, result)
	return nil
}
