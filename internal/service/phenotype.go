package service

import "github.com/pharmaguard-server/internal/domain"

// functionCounts tallies the function classes of the two alleles of a diplotype.
type functionCounts struct {
	noFunction int
	decreased  int
	increased  int
}

func countFunctions(kb alleleFunctions, gene string, alleles ...string) functionCounts {
	var c functionCounts
	for _, a := range alleles {
		switch kb.Function(gene, a) {
		case domain.NO_FUNCTION:
			c.noFunction++
		case domain.DECREASED_FUNCTION:
			c.decreased++
		case domain.INCREASED_FUNCTION:
			c.increased++
		}
	}
	return c
}

// phenotypeRules maps each gene family to its phenotype rule set.
var phenotypeRules = map[domain.GeneFamily]func(functionCounts) string{
	domain.MetabolizerGene: metabolizerPhenotype,
	domain.TransporterGene: transporterPhenotype,
	domain.SensitivityGene: sensitivityPhenotype,
}

// AssignPhenotype derives the phenotype label of a diplotype from its allele functions.
func AssignPhenotype(kb alleleFunctions, gene, first, second string) string {
	rule, ok := phenotypeRules[kb.Family(gene)]
	if !ok {
		return domain.UnknownPhenotype
	}
	return rule(countFunctions(kb, gene, first, second))
}

// Rules are evaluated in priority order; the first match wins.
func metabolizerPhenotype(c functionCounts) string {
	switch {
	case c.noFunction == 2:
		return domain.PoorMetabolizer
	case c.noFunction == 1 && c.decreased >= 1:
		return domain.PoorMetabolizer
	case c.noFunction == 1:
		return domain.IntermediateMetabolizer
	case c.decreased == 2, c.decreased == 1:
		return domain.IntermediateMetabolizer
	case c.increased == 2:
		return domain.UltrarapidMetabolizer
	case c.increased == 1:
		return domain.RapidMetabolizer
	default:
		return domain.NormalMetabolizer
	}
}

func transporterPhenotype(c functionCounts) string {
	switch {
	case c.noFunction == 2:
		return domain.PoorFunction
	case c.noFunction == 1, c.decreased >= 1:
		return domain.DecreasedFunction
	default:
		return domain.NormalFunction
	}
}

func sensitivityPhenotype(c functionCounts) string {
	switch c.increased {
	case 2:
		return domain.HighWarfarinSensitivity
	case 1:
		return domain.ModerateWarfarinSensitivity
	default:
		return domain.NormalWarfarinSensitivity
	}
}
