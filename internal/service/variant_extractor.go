package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

const (
	minVCFColumns = 8

	colID     = 2
	colInfo   = 7
	colFormat = 8
	colSample = 9
)

// starAlleleKeys are the INFO keys holding the star allele, in precedence order.
var starAlleleKeys = []string{"STAR", "ALLELE"}

// ExtractStats counts how the lines of one input were handled.
type ExtractStats struct {
	Lines         int `json:"lines"`
	Headers       int `json:"headers"`
	ShortLines    int `json:"short_lines"`
	NotCarried    int `json:"not_carried"`
	MissingGene   int `json:"missing_gene"`
	MissingAllele int `json:"missing_allele"`
	Observations  int `json:"observations"`
}

// VariantExtractor turns VCF-style text into genotype-confirmed variant observations.
// It is stateless and safe for concurrent use.
type VariantExtractor struct {
	logger *logrus.Logger
}

// NewVariantExtractor creates a new variant extractor
func NewVariantExtractor(logger *logrus.Logger) *VariantExtractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &VariantExtractor{logger: logger}
}

// Extract reads every line of r and returns the carried variants in input order.
// Malformed lines are skipped; only a read failure is returned as an error.
func (e *VariantExtractor) Extract(r io.Reader) ([]domain.VariantObservation, error) {
	observations, _, err := e.ExtractWithStats(r)
	return observations, err
}

// ExtractWithStats is Extract that also reports per-line outcomes.
func (e *VariantExtractor) ExtractWithStats(r io.Reader) ([]domain.VariantObservation, ExtractStats, error) {
	var (
		stats        ExtractStats
		observations []domain.VariantObservation
	)

	// Lines have no length cap; the caller bounds the whole input.
	reader := bufio.NewReader(r)
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, stats, fmt.Errorf("failed to read variant file: %w", readErr)
		}
		if raw == "" && readErr != nil {
			break
		}

		stats.Lines++
		obs, outcome := parseVCFLine(raw)
		switch outcome {
		case lineHeader:
			stats.Headers++
		case lineShort:
			stats.ShortLines++
		case lineNotCarried:
			stats.NotCarried++
		case lineNoGene:
			stats.MissingGene++
		case lineNoAllele:
			stats.MissingAllele++
		case lineObservation:
			stats.Observations++
			observations = append(observations, obs)
		}
		if readErr != nil {
			break
		}
	}

	e.logger.WithFields(logrus.Fields{
		"lines":          stats.Lines,
		"observations":   stats.Observations,
		"short_lines":    stats.ShortLines,
		"not_carried":    stats.NotCarried,
		"missing_gene":   stats.MissingGene,
		"missing_allele": stats.MissingAllele,
	}).Debug("Extracted variant observations")

	return observations, stats, nil
}

type lineOutcome int

const (
	lineHeader lineOutcome = iota
	lineShort
	lineNotCarried
	lineNoGene
	lineNoAllele
	lineObservation
)

func parseVCFLine(raw string) (domain.VariantObservation, lineOutcome) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return domain.VariantObservation{}, lineHeader
	}

	cols := strings.Split(line, "\t")
	if len(cols) < minVCFColumns {
		return domain.VariantObservation{}, lineShort
	}

	refID := strings.TrimSpace(cols[colID])
	if refID == "" {
		refID = domain.UnknownReferenceID
	}

	info := ParseInfo(cols[colInfo])

	var format, sample string
	if len(cols) > colFormat {
		format = cols[colFormat]
	}
	if len(cols) > colSample {
		sample = cols[colSample]
	}
	gt := ExtractGenotype(format, sample)

	copies := GenotypeCopies(gt)
	if copies == 0 {
		return domain.VariantObservation{}, lineNotCarried
	}

	gene := info["GENE"]
	if gene == "" {
		return domain.VariantObservation{}, lineNoGene
	}
	star := firstNonEmpty(info, starAlleleKeys)
	if star == "" {
		return domain.VariantObservation{}, lineNoAllele
	}

	return domain.VariantObservation{
		Gene:        gene,
		StarAllele:  star,
		ReferenceID: refID,
		RawGenotype: gt,
		Copies:      copies,
	}, lineObservation
}

// ParseInfo splits a VCF INFO column into trimmed KEY=VALUE pairs. Flags without '='
// and pairs with an empty key are dropped; the value keeps any further '=' characters.
func ParseInfo(field string) map[string]string {
	info := make(map[string]string)
	for _, pair := range strings.Split(field, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		info[key] = strings.TrimSpace(value)
	}
	return info
}

// ExtractGenotype returns the GT sub-field of a sample column, located by its position
// in the FORMAT column. Anything missing yields the no-call "./.".
func ExtractGenotype(format, sample string) string {
	if format == "" || sample == "" {
		return domain.NoCallGenotype
	}
	idx := -1
	for i, key := range strings.Split(format, ":") {
		if strings.TrimSpace(key) == "GT" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.NoCallGenotype
	}
	values := strings.Split(sample, ":")
	if idx >= len(values) {
		return domain.NoCallGenotype
	}
	gt := strings.TrimSpace(values[idx])
	if gt == "" {
		return domain.NoCallGenotype
	}
	return gt
}

// GenotypeCopies counts ALT copies in a diploid GT string. Phased '|' and unphased '/'
// separators are equivalent; anything that is not exactly two tokens carries no copies.
// Each token that is an integer greater than zero counts as one copy.
func GenotypeCopies(gt string) int {
	tokens := strings.Split(strings.ReplaceAll(gt, "|", "/"), "/")
	if len(tokens) != 2 {
		return 0
	}
	copies := 0
	for _, tok := range tokens {
		if n, err := strconv.Atoi(strings.TrimSpace(tok)); err == nil && n > 0 {
			copies++
		}
	}
	return copies
}

func firstNonEmpty(info map[string]string, keys []string) string {
	for _, k := range keys {
		if v := info[k]; v != "" {
			return v
		}
	}
	return ""
}
