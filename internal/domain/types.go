// Package domain contains core business entities and types for pharmacogenomic (PGx)
// interpretation: genotype-confirmed variant observations, star-allele diplotypes and
// the drug-metabolism phenotypes derived from them.
//
// Reference: Caudle et al. (2017) Standardizing terms for clinical pharmacogenetic test
// results: consensus terms from the Clinical Pharmacogenetics Implementation Consortium (CPIC).
// Genet Med. 19(2):215-223. doi: 10.1038/gim.2016.87
package domain

import (
	"errors"
	"fmt"
)

// FunctionClass is the functional classification of a star allele.
// The metabolizer-severity scale runs from no function (most severe) to normal function;
// increased function is a separate clinical axis ranked after normal.
type FunctionClass string

const (
	NO_FUNCTION        FunctionClass = "no_function"
	DECREASED_FUNCTION FunctionClass = "decreased_function"
	NORMAL_FUNCTION    FunctionClass = "normal_function"
	INCREASED_FUNCTION FunctionClass = "increased_function"
)

// IsValid reports whether f is one of the known function classes.
func (f FunctionClass) IsValid() bool {
	switch f {
	case NO_FUNCTION, DECREASED_FUNCTION, NORMAL_FUNCTION, INCREASED_FUNCTION:
		return true
	default:
		return false
	}
}

// SeverityRank returns the slot-competition rank of the class. Lower is more severe.
// Unknown classes rank as normal function.
func (f FunctionClass) SeverityRank() int {
	switch f {
	case NO_FUNCTION:
		return 0
	case DECREASED_FUNCTION:
		return 1
	case INCREASED_FUNCTION:
		return 3
	default:
		return 2
	}
}

// String returns the string representation of the function class.
func (f FunctionClass) String() string {
	return string(f)
}

// GeneFamily selects the phenotype rule set applied to a gene.
type GeneFamily int

const (
	Unclassified GeneFamily = iota
	MetabolizerGene
	TransporterGene
	SensitivityGene
)

var geneFamilyNames = map[GeneFamily]string{
	Unclassified:    "unclassified",
	MetabolizerGene: "metabolizer",
	TransporterGene: "transporter",
	SensitivityGene: "sensitivity",
}

// String returns the configuration name of the family.
func (g GeneFamily) String() string {
	if name, ok := geneFamilyNames[g]; ok {
		return name
	}
	return "unclassified"
}

// ParseGeneFamily maps a configuration name back to its GeneFamily.
func ParseGeneFamily(name string) (GeneFamily, error) {
	for family, n := range geneFamilyNames {
		if n == name {
			return family, nil
		}
	}
	return Unclassified, fmt.Errorf("%w: %q", ErrInvalidGeneFamily, name)
}

// Phenotype labels produced by the engine. Each gene family has its own label set.
const (
	PoorMetabolizer         = "Poor Metabolizer"
	IntermediateMetabolizer = "Intermediate Metabolizer"
	NormalMetabolizer       = "Normal Metabolizer"
	RapidMetabolizer        = "Rapid Metabolizer"
	UltrarapidMetabolizer   = "Ultrarapid Metabolizer"

	PoorFunction      = "Poor Function"
	DecreasedFunction = "Decreased Function"
	NormalFunction    = "Normal Function"

	HighWarfarinSensitivity     = "High Warfarin Sensitivity"
	ModerateWarfarinSensitivity = "Moderate Warfarin Sensitivity"
	NormalWarfarinSensitivity   = "Normal Warfarin Sensitivity"

	UnknownPhenotype = "Unknown"
)

// Zygosity describes how many ALT copies a diploid genotype carries.
type Zygosity string

const (
	HOMOZYGOUS_REFERENCE Zygosity = "HOMOZYGOUS_REFERENCE"
	HETEROZYGOUS         Zygosity = "HETEROZYGOUS"
	HOMOZYGOUS_ALTERNATE Zygosity = "HOMOZYGOUS_ALTERNATE"
)

// ZygosityFromCopies converts an ALT copy count to its zygosity.
func ZygosityFromCopies(copies int) Zygosity {
	switch copies {
	case 1:
		return HETEROZYGOUS
	case 2:
		return HOMOZYGOUS_ALTERNATE
	default:
		return HOMOZYGOUS_REFERENCE
	}
}

const (
	// ReferenceAllele is the wildtype label every haplotype slot starts from.
	ReferenceAllele = "*1"

	// UnknownReferenceID marks a variant line with no ID column value.
	UnknownReferenceID = "."

	// NoCallGenotype stands in for an absent or undeclared GT sub-field.
	NoCallGenotype = "./."

	// DefaultGuidanceLevel is used when no guideline entry matches a phenotype.
	DefaultGuidanceLevel = "B"

	// NoGuidelineRecommendation is used when no guideline entry matches a phenotype.
	NoGuidelineRecommendation = "No specific CPIC guideline found for this phenotype."

	// NoContributingVariants is the provenance sentinel for a gene with no carried variants.
	NoContributingVariants = "No variants detected — *1/*1 assumed"

	// AllWildtypeSummary replaces the summary when no gene produced a result.
	AllWildtypeSummary = "All GT=0/0 — no actionable pharmacogenomic variants detected. Patient is wildtype for all tested genes."
)

// Validation errors for knowledge base and record integrity
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidFunctionClass = errors.New("invalid allele function class")
	ErrInvalidGeneFamily    = errors.New("invalid gene family")
	ErrInputTooLarge        = errors.New("variant file exceeds size limit")
)
