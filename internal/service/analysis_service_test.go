package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/cache"
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

type memoryPatients struct {
	mu       sync.Mutex
	patients map[string]*domain.Patient
}

func (m *memoryPatients) CreatePatient(_ context.Context, p *domain.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
	return nil
}

func (m *memoryPatients) GetPatient(_ context.Context, id string) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memoryPatients) ListPatients(context.Context) ([]*domain.Patient, error) {
	return nil, nil
}

type memoryAnalyses struct {
	saved   []*domain.Analysis
	saveErr error
}

func (m *memoryAnalyses) SaveAnalysis(_ context.Context, a *domain.Analysis) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, a)
	return nil
}

func (m *memoryAnalyses) GetAnalysis(context.Context, string) (*domain.Analysis, error) {
	return nil, domain.ErrNotFound
}

func (m *memoryAnalyses) ListAnalysesByPatient(context.Context, string) ([]*domain.Analysis, error) {
	return m.saved, nil
}

const sampleVCF = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE\n" +
	"chr10\t94781859\trs4244285\tG\tA\t.\tPASS\tGENE=CYP2C19;STAR=*2\tGT\t0/1\n" +
	"chr22\t42128945\trs3892097\tC\tT\t.\tPASS\tGENE=CYP2D6;STAR=*4\tGT\t1/1\n" +
	"chr12\t21178615\trs4149056\tT\tC\t.\tPASS\tGENE=SLCO1B1;STAR=*5\tGT\t0/0\n"

func TestAnalysisService_Analyze(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)

	result, err := svc.Analyze(context.Background(), strings.NewReader(sampleVCF))
	require.NoError(t, err)

	assert.Equal(t, 2, result.VariantsDetected)
	assert.Equal(t, 2, result.GenesReported)
	assert.Equal(t,
		"CYP2C19: *2/*1 → Intermediate Metabolizer (guidance 1A); CYP2D6: *4/*4 → Poor Metabolizer (guidance 1A)",
		result.Summary)
}

func TestAnalysisService_AnalyzeWildtype(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)

	result, err := svc.AnalyzeBytes(context.Background(), []byte("#header only\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, result.GenesReported)
	assert.Empty(t, result.GeneResults)
	assert.Equal(t, domain.AllWildtypeSummary, result.Summary)
}

// recordingCache wraps a MemoryCache and remembers the keys written to it.
type recordingCache struct {
	*cache.MemoryCache
	mu   sync.Mutex
	keys []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{MemoryCache: cache.NewMemoryCache(10, time.Hour)}
}

func (c *recordingCache) Set(ctx context.Context, key string, result *domain.AnalysisResult) error {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return c.MemoryCache.Set(ctx, key, result)
}

func TestAnalysisService_CacheHit(t *testing.T) {
	c := newRecordingCache()
	svc := NewAnalysisService(AnalysisServiceOptions{Cache: c}, nil)
	ctx := context.Background()

	first, err := svc.AnalyzeBytes(ctx, []byte(sampleVCF))
	require.NoError(t, err)
	require.Len(t, c.keys, 1)
	assert.True(t, strings.HasPrefix(c.keys[0], "kb:"))

	second, err := svc.AnalyzeBytes(ctx, []byte(sampleVCF))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, c.keys, 1, "a hit must not write again")
}

func TestAnalysisService_CacheScopedToKnowledgeBase(t *testing.T) {
	entries := knowledgebase.Default().Entries()
	for i := range entries {
		if entries[i].Name == "CYP2C19" {
			entries[i].Alleles["*2"] = domain.NORMAL_FUNCTION
		}
	}
	custom, err := knowledgebase.New(entries)
	require.NoError(t, err)

	input := []byte(vcfLine("rs4244285", "GENE=CYP2C19;STAR=*2", "GT", "1/1") + "\n")
	ctx := context.Background()
	shared := newRecordingCache()

	builtIn, err := NewAnalysisService(AnalysisServiceOptions{Cache: shared}, nil).AnalyzeBytes(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.PoorMetabolizer, builtIn.GeneResults[0].Phenotype)

	fromShared, err := NewAnalysisService(AnalysisServiceOptions{KnowledgeBase: custom, Cache: shared}, nil).AnalyzeBytes(ctx, input)
	require.NoError(t, err)
	uncached, err := NewAnalysisService(AnalysisServiceOptions{KnowledgeBase: custom}, nil).AnalyzeBytes(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, uncached, fromShared)
	assert.NotEqual(t, builtIn.Summary, fromShared.Summary)
	require.Len(t, shared.keys, 2)
	assert.NotEqual(t, shared.keys[0], shared.keys[1])
}

func TestAnalysisService_InputTooLarge(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{MaxBytes: 16}, nil)

	_, err := svc.AnalyzeBytes(context.Background(), []byte(sampleVCF))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
}

func TestAnalysisService_AnalyzeForPatient(t *testing.T) {
	patients := &memoryPatients{patients: map[string]*domain.Patient{
		"p-1": {ID: "p-1", Name: "Jane Roe", DoctorID: "doc-1"},
	}}
	analyses := &memoryAnalyses{}
	svc := NewAnalysisService(AnalysisServiceOptions{Patients: patients, Analyses: analyses}, nil)
	ctx := context.Background()

	analysis, err := svc.AnalyzeForPatient(ctx, "p-1", "sample.vcf", strings.NewReader(sampleVCF))
	require.NoError(t, err)

	require.Len(t, analyses.saved, 1)
	assert.Equal(t, "p-1", analysis.PatientID)
	assert.Equal(t, "sample.vcf", analysis.FileName)
	assert.Len(t, analysis.FileSHA256, 64)
	require.Len(t, analysis.GeneProfiles, analysis.GenesReported)
	for _, gp := range analysis.GeneProfiles {
		assert.Equal(t, analysis.ID, gp.AnalysisID)
		assert.Equal(t, "p-1", gp.PatientID)
		assert.NotEmpty(t, gp.ID)
	}
	assert.Equal(t, "CYP2C19", analysis.Results()[0].Gene)

	t.Run("unknown patient", func(t *testing.T) {
		_, err := svc.AnalyzeForPatient(ctx, "missing", "sample.vcf", strings.NewReader(sampleVCF))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save failure", func(t *testing.T) {
		analyses.saveErr = errors.New("disk full")
		defer func() { analyses.saveErr = nil }()

		_, err := svc.AnalyzeForPatient(ctx, "p-1", "sample.vcf", strings.NewReader(sampleVCF))
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestAnalysisService_AnalyzeForPatientWithoutStorage(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)

	_, err := svc.AnalyzeForPatient(context.Background(), "p-1", "x.vcf", strings.NewReader(sampleVCF))
	assert.Error(t, err)
}

func TestAnalysisService_AnalyzeBatch(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)

	inputs := []NamedInput{
		BytesInput("one.vcf", []byte(sampleVCF)),
		{Name: "broken.vcf", Open: func() (io.ReadCloser, error) { return nil, fmt.Errorf("permission denied") }},
		BytesInput("empty.vcf", nil),
		FileInput("/nonexistent/path.vcf"),
	}

	items, err := svc.AnalyzeBatch(context.Background(), inputs, 2)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "one.vcf", items[0].Name)
	require.NoError(t, items[0].Err)
	assert.Equal(t, 2, items[0].Result.GenesReported)

	assert.ErrorContains(t, items[1].Err, "permission denied")
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.Equal(t, domain.AllWildtypeSummary, items[2].Result.Summary)

	assert.Error(t, items[3].Err)
}

func TestAnalysisService_AnalyzeBatchCancelled(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeBatch(ctx, []NamedInput{BytesInput("one.vcf", []byte(sampleVCF))}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalysisService_Evaluate(t *testing.T) {
	svc := NewAnalysisService(AnalysisServiceOptions{}, nil)

	assert.Nil(t, svc.Evaluate("CYP2C19", "*2", "0/0"))
	result := svc.Evaluate("VKORC1", "-1639G>A", "0/1")
	require.NotNil(t, result)
	assert.Equal(t, "*1/-1639G>A", result.Diplotype)
	assert.Equal(t, domain.ModerateWarfarinSensitivity, result.Phenotype)
}
