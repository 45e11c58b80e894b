package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

// DefaultMaxInputBytes bounds a single variant file when no limit is configured.
const DefaultMaxInputBytes int64 = 50 * 1024 * 1024

// AnalysisService runs the variant-to-phenotype pipeline and optionally caches and
// persists its results.
type AnalysisService struct {
	extractor *VariantExtractor
	engine    *DiplotypeEngine
	cache     domain.ResultCache
	patients  domain.PatientRepository
	analyses  domain.AnalysisRepository
	logger    *logrus.Logger
	maxBytes  int64

	// kbPrefix scopes cache keys to the knowledge base the results were built from.
	kbPrefix string
}

// AnalysisServiceOptions holds the optional collaborators of an AnalysisService.
type AnalysisServiceOptions struct {
	KnowledgeBase *knowledgebase.KnowledgeBase
	Cache         domain.ResultCache
	Patients      domain.PatientRepository
	Analyses      domain.AnalysisRepository
	MaxBytes      int64
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts AnalysisServiceOptions, logger *logrus.Logger) *AnalysisService {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}
	kb := opts.KnowledgeBase
	if kb == nil {
		kb = knowledgebase.Default()
	}

	resultCache := opts.Cache
	var kbPrefix string
	if resultCache != nil {
		fp, err := kb.Fingerprint()
		if err != nil {
			logger.WithError(err).Warn("Failed to fingerprint knowledge base, result caching disabled")
			resultCache = nil
		} else {
			kbPrefix = "kb:" + fp[:16] + ":"
		}
	}

	return &AnalysisService{
		extractor: NewVariantExtractor(logger),
		engine:    NewDiplotypeEngine(kb),
		cache:     resultCache,
		patients:  opts.Patients,
		analyses:  opts.Analyses,
		logger:    logger,
		maxBytes:  maxBytes,
		kbPrefix:  kbPrefix,
	}
}

// Analyze runs the pipeline over the content of r.
func (s *AnalysisService) Analyze(ctx context.Context, r io.Reader) (*domain.AnalysisResult, error) {
	result, _, err := s.analyze(ctx, r)
	return result, err
}

// AnalyzeBytes runs the pipeline over an in-memory variant file.
func (s *AnalysisService) AnalyzeBytes(ctx context.Context, data []byte) (*domain.AnalysisResult, error) {
	return s.Analyze(ctx, bytes.NewReader(data))
}

func (s *AnalysisService) analyze(ctx context.Context, r io.Reader) (*domain.AnalysisResult, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read variant file: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", domain.ErrInputTooLarge, s.maxBytes)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	cacheKey := s.kbPrefix + digest

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			s.logger.WithField("sha256", digest).Debug("Analysis cache hit")
			return cached, digest, nil
		}
	}

	start := time.Now()
	observations, err := s.extractor.Extract(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	result := domain.NewAnalysisResult(observations, s.engine.BuildResults(observations))

	s.logger.WithFields(logrus.Fields{
		"sha256":            digest,
		"variants_detected": result.VariantsDetected,
		"genes_reported":    result.GenesReported,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Info("Variant file analysed")

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result); err != nil {
			s.logger.WithError(err).Warn("Failed to cache analysis result")
		}
	}

	return result, digest, nil
}

// AnalyzeForPatient analyses a variant file and persists the run with one gene profile
// per gene result. The patient must exist.
func (s *AnalysisService) AnalyzeForPatient(ctx context.Context, patientID, fileName string, r io.Reader) (*domain.Analysis, error) {
	if s.patients == nil || s.analyses == nil {
		return nil, fmt.Errorf("analysis persistence is not configured")
	}

	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, fmt.Errorf("failed to load patient %s: %w", patientID, err)
	}

	result, digest, err := s.analyze(ctx, r)
	if err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		ID:               uuid.New().String(),
		PatientID:        patientID,
		FileName:         fileName,
		FileSHA256:       digest,
		VariantsDetected: result.VariantsDetected,
		GenesReported:    result.GenesReported,
		Summary:          result.Summary,
		GeneProfiles:     make([]domain.GeneProfile, 0, len(result.GeneResults)),
		CreatedAt:        time.Now().UTC(),
	}
	for _, gr := range result.GeneResults {
		analysis.GeneProfiles = append(analysis.GeneProfiles, domain.GeneProfile{
			ID:         uuid.New().String(),
			AnalysisID: analysis.ID,
			PatientID:  patientID,
			GeneResult: gr,
		})
	}

	if err := s.analyses.SaveAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"analysis_id":   analysis.ID,
		"patient_id":    patientID,
		"gene_profiles": len(analysis.GeneProfiles),
	}).Info("Analysis stored")

	return analysis, nil
}

// Evaluate interprets a single variant call. It returns nil when the genotype is not carried.
func (s *AnalysisService) Evaluate(gene, star, genotype string) *domain.GeneResult {
	return s.engine.EvaluateVariant(gene, star, genotype)
}

// NamedInput is one variant file of a batch run.
type NamedInput struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileInput returns a NamedInput reading the file at path.
func FileInput(path string) NamedInput {
	return NamedInput{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesInput returns a NamedInput over in-memory content.
func BytesInput(name string, data []byte) NamedInput {
	return NamedInput{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// BatchItem is the outcome of one batch input. Err is set when that input failed.
type BatchItem struct {
	Name   string
	Result *domain.AnalysisResult
	Err    error
}

// AnalyzeBatch analyses inputs concurrently with at most limit pipelines in flight.
// Per-input failures are reported in the items; only cancellation aborts the batch.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, inputs []NamedInput, limit int) ([]BatchItem, error) {
	items := make([]BatchItem, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = BatchItem{Name: in.Name}

			rc, err := in.Open()
			if err != nil {
				items[i].Err = fmt.Errorf("failed to open %s: %w", in.Name, err)
				return nil
			}
			defer rc.Close()

			result, err := s.Analyze(gctx, rc)
			if err != nil {
				items[i].Err = fmt.Errorf("failed to analyse %s: %w", in.Name, err)
				return nil
			}
			items[i].Result = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, fmt.Errorf("batch analysis cancelled: %w", err)
	}
	return items, nil
}
