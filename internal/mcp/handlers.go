package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

type analyzeVCFInput struct {
	VCFContent string `json:"vcf_content,omitempty" jsonschema:"full VCF text"`
	Path       string `json:"path,omitempty" jsonschema:"path to a VCF file readable by the server"`
}

type evaluateVariantInput struct {
	Gene     string `json:"gene" jsonschema:"gene symbol, e.g. CYP2D6"`
	Star     string `json:"star" jsonschema:"star allele label, e.g. *4"`
	Genotype string `json:"genotype" jsonschema:"diploid GT value, e.g. 0/1"`
}

type evaluateVariantOutput struct {
	Carried bool               `json:"carried"`
	Result  *domain.GeneResult `json:"result,omitempty"`
}

type lookupGeneInput struct {
	Gene string `json:"gene" jsonschema:"gene symbol, e.g. TPMT"`
}

type lookupGeneOutput struct {
	Name            string                            `json:"name"`
	Family          string                            `json:"family"`
	ReferenceAllele string                            `json:"reference_allele"`
	Alleles         map[string]domain.FunctionClass   `json:"alleles"`
	AlleleOrder     []string                          `json:"allele_order"`
	Guidance        map[string]knowledgebase.Guidance `json:"guidance"`
}

func (s *Server) handleAnalyzeVCF(ctx context.Context, _ *mcp.CallToolRequest, in analyzeVCFInput) (*mcp.CallToolResult, domain.AnalysisResult, error) {
	log := s.logger.WithField("tool", "analyze_vcf")

	var (
		result *domain.AnalysisResult
		err    error
	)
	switch {
	case in.VCFContent != "" && in.Path != "":
		return nil, domain.AnalysisResult{}, fmt.Errorf("supply either vcf_content or path, not both")
	case in.VCFContent != "":
		result, err = s.service.Analyze(ctx, strings.NewReader(in.VCFContent))
	case in.Path != "":
		f, openErr := os.Open(in.Path)
		if openErr != nil {
			return nil, domain.AnalysisResult{}, fmt.Errorf("failed to open %s: %w", in.Path, openErr)
		}
		defer f.Close()
		result, err = s.service.Analyze(ctx, f)
	default:
		return nil, domain.AnalysisResult{}, fmt.Errorf("vcf_content or path is required")
	}
	if err != nil {
		log.WithError(err).Error("Analysis failed")
		return nil, domain.AnalysisResult{}, err
	}

	log.WithFields(logrus.Fields{
		"variants_detected": result.VariantsDetected,
		"genes_reported":    result.GenesReported,
	}).Info("Tool invoked")

	return nil, *result, nil
}

func (s *Server) handleEvaluateVariant(_ context.Context, _ *mcp.CallToolRequest, in evaluateVariantInput) (*mcp.CallToolResult, evaluateVariantOutput, error) {
	if in.Gene == "" || in.Star == "" || in.Genotype == "" {
		return nil, evaluateVariantOutput{}, fmt.Errorf("gene, star and genotype are required")
	}

	result := s.service.Evaluate(in.Gene, in.Star, in.Genotype)
	s.logger.WithFields(logrus.Fields{
		"tool":    "evaluate_variant",
		"gene":    in.Gene,
		"carried": result != nil,
	}).Info("Tool invoked")

	return nil, evaluateVariantOutput{Carried: result != nil, Result: result}, nil
}

func (s *Server) handleLookupGene(_ context.Context, _ *mcp.CallToolRequest, in lookupGeneInput) (*mcp.CallToolResult, lookupGeneOutput, error) {
	entry, ok := s.kb.Gene(strings.TrimSpace(in.Gene))
	if !ok {
		return nil, lookupGeneOutput{}, fmt.Errorf("gene %q is not in the knowledge base (known: %s)",
			in.Gene, strings.Join(s.kb.Genes(), ", "))
	}

	return nil, lookupGeneOutput{
		Name:            entry.Name,
		Family:          entry.Family,
		ReferenceAllele: s.kb.ReferenceAllele(entry.Name),
		Alleles:         entry.Alleles,
		AlleleOrder:     entry.AllelesByFunction(),
		Guidance:        entry.Guidance,
	}, nil
}
