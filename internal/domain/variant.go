package domain

import (
	"fmt"
	"strings"
)

// VariantObservation is one genotype-confirmed variant call read from a VCF data line.
// Copies is always 1 or 2 for observations produced by the extractor.
type VariantObservation struct {
	Gene        string `json:"gene"`
	StarAllele  string `json:"star"`
	ReferenceID string `json:"rs_id"`
	RawGenotype string `json:"gt"`
	Copies      int    `json:"copies"`
}

// Display renders the observation as a provenance string, e.g. "*2 (rs4244285, GT=0/1)".
func (v VariantObservation) Display() string {
	return fmt.Sprintf("%s (%s, GT=%s)", v.StarAllele, v.ReferenceID, v.RawGenotype)
}

// Zygosity returns the zygosity implied by the copy count.
func (v VariantObservation) Zygosity() Zygosity {
	return ZygosityFromCopies(v.Copies)
}

// GeneResult is the clinical interpretation for one gene.
type GeneResult struct {
	Gene                 string   `json:"gene"`
	Diplotype            string   `json:"diplotype"`
	Phenotype            string   `json:"phenotype"`
	ContributingVariants []string `json:"contributing_variants"`
	GuidanceLevel        string   `json:"cpic_level"`
	Recommendation       string   `json:"recommendation"`
}

// SummaryLine renders the result in the one-line form used by Summarize.
func (r GeneResult) SummaryLine() string {
	return fmt.Sprintf("%s: %s → %s (guidance %s)", r.Gene, r.Diplotype, r.Phenotype, r.GuidanceLevel)
}

// Summarize joins per-gene summary lines, or returns AllWildtypeSummary for no results.
func Summarize(results []GeneResult) string {
	if len(results) == 0 {
		return AllWildtypeSummary
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.SummaryLine()
	}
	return strings.Join(lines, "; ")
}

// AnalysisResult is the outcome of one pipeline run over a variant file.
type AnalysisResult struct {
	VariantsDetected int          `json:"variants_detected"`
	GenesReported    int          `json:"genes_reported"`
	Summary          string       `json:"summary"`
	GeneResults      []GeneResult `json:"gene_results"`
}

// NewAnalysisResult assembles an AnalysisResult from the extractor and engine outputs.
func NewAnalysisResult(observations []VariantObservation, results []GeneResult) *AnalysisResult {
	if results == nil {
		results = []GeneResult{}
	}
	return &AnalysisResult{
		VariantsDetected: len(observations),
		GenesReported:    len(results),
		Summary:          Summarize(results),
		GeneResults:      results,
	}
}
