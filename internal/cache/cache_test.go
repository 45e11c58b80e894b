package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func sampleResult() *domain.AnalysisResult {
	return domain.NewAnalysisResult(
		[]domain.VariantObservation{{Gene: "CYP2C19", StarAllele: "*2", ReferenceID: "rs4244285", RawGenotype: "0/1", Copies: 1}},
		[]domain.GeneResult{{
			Gene:                 "CYP2C19",
			Diplotype:            "*2/*1",
			Phenotype:            domain.IntermediateMetabolizer,
			ContributingVariants: []string{"*2 (rs4244285, GT=0/1)"},
			GuidanceLevel:        "1A",
			Recommendation:       "Consider alternative antiplatelet therapy; reduced clopidogrel efficacy.",
		}},
	)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	result := sampleResult()
	require.NoError(t, c.Set(ctx, "a", result))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Same(t, result, got)

	require.NoError(t, c.Set(ctx, "b", result))
	require.NoError(t, c.Set(ctx, "c", result))
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry should be evicted")
	for _, key := range []string{"b", "c"} {
		_, ok = c.Get(ctx, key)
		assert.True(t, ok, key)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)

	require.NoError(t, c.Set(ctx, "a", sampleResult()))
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

type stubCache struct {
	entries map[string]*domain.AnalysisResult
	setErr  error
	gets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string]*domain.AnalysisResult{}}
}

func (s *stubCache) Get(_ context.Context, key string) (*domain.AnalysisResult, bool) {
	s.gets++
	r, ok := s.entries[key]
	return r, ok
}

func (s *stubCache) Set(_ context.Context, key string, result *domain.AnalysisResult) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.entries[key] = result
	return nil
}

func TestTieredCache(t *testing.T) {
	ctx := context.Background()

	t.Run("remote hit back-fills local", func(t *testing.T) {
		local, remote := NewMemoryCache(10, time.Hour), newStubCache()
		remote.entries["k"] = sampleResult()
		c := NewTieredCache(local, remote)

		got, ok := c.Get(ctx, "k")
		require.True(t, ok)
		assert.Equal(t, "CYP2C19", got.GeneResults[0].Gene)
		_, ok = local.Get(ctx, "k")
		assert.True(t, ok, "remote hit should be copied to the local cache")

		_, ok = c.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, 1, remote.gets, "second lookup should be served locally")
	})

	t.Run("remote failure still writes local", func(t *testing.T) {
		local, remote := NewMemoryCache(10, time.Hour), newStubCache()
		remote.setErr = errors.New("connection refused")
		c := NewTieredCache(local, remote)

		err := c.Set(ctx, "k", sampleResult())
		assert.Error(t, err)
		_, ok := local.Get(ctx, "k")
		assert.True(t, ok)
	})

	t.Run("memory only", func(t *testing.T) {
		c := NewTieredCache(NewMemoryCache(10, time.Hour), nil)

		_, ok := c.Get(ctx, "k")
		assert.False(t, ok)
		require.NoError(t, c.Set(ctx, "k", sampleResult()))
		_, ok = c.Get(ctx, "k")
		assert.True(t, ok)
	})
}

func TestNew_MemoryOnly(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	c, closer := New(context.Background(), domain.CacheConfig{MemorySize: 5, DefaultTTL: time.Minute}, logger)
	defer closer.Close()

	assert.Nil(t, c.remote)
	require.NoError(t, c.Set(context.Background(), "k", sampleResult()))
}
