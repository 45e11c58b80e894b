package service

import (
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

// alleleFunctions is the part of the knowledge base the engine reads.
type alleleFunctions interface {
	Function(gene, allele string) domain.FunctionClass
	Severity(gene, allele string) int
	Family(gene string) domain.GeneFamily
	ReferenceAllele(gene string) string
	Guidance(gene, phenotype string) (knowledgebase.Guidance, bool)
}

// DiplotypeEngine folds per-gene variant observations into diplotypes, phenotypes and
// dosing guidance. It performs no I/O and is safe for concurrent use.
type DiplotypeEngine struct {
	kb alleleFunctions
}

// NewDiplotypeEngine creates an engine over kb, or the built-in tables when kb is nil.
func NewDiplotypeEngine(kb *knowledgebase.KnowledgeBase) *DiplotypeEngine {
	if kb == nil {
		kb = knowledgebase.Default()
	}
	return &DiplotypeEngine{kb: kb}
}

// haplotypeSlots is the two-slot diploid state of one gene.
type haplotypeSlots struct {
	a, b      string
	reference string
}

func newHaplotypeSlots(reference string) haplotypeSlots {
	return haplotypeSlots{a: reference, b: reference, reference: reference}
}

// apply returns the slot state after one observation.
func (s haplotypeSlots) apply(kb alleleFunctions, gene string, obs domain.VariantObservation) haplotypeSlots {
	allele := obs.StarAllele
	switch obs.Zygosity() {
	case domain.HOMOZYGOUS_ALTERNATE:
		s.a = pickMoreSevere(kb, gene, s.a, allele)
		s.b = pickMoreSevere(kb, gene, s.b, allele)
	case domain.HETEROZYGOUS:
		switch {
		case s.a == s.reference:
			s.a = allele
		case s.b == s.reference:
			s.b = allele
		case kb.Severity(gene, s.a) >= kb.Severity(gene, s.b):
			// Ties upgrade slot A.
			s.a = pickMoreSevere(kb, gene, s.a, allele)
		default:
			s.b = pickMoreSevere(kb, gene, s.b, allele)
		}
	}
	return s
}

// canonical orders the slots with the more severe allele first; ties keep slot order.
func (s haplotypeSlots) canonical(kb alleleFunctions, gene string) (string, string) {
	if kb.Severity(gene, s.b) < kb.Severity(gene, s.a) {
		return s.b, s.a
	}
	return s.a, s.b
}

// pickMoreSevere keeps cur unless cand ranks strictly more severe.
func pickMoreSevere(kb alleleFunctions, gene, cur, cand string) string {
	if kb.Severity(gene, cur) <= kb.Severity(gene, cand) {
		return cur
	}
	return cand
}

type geneGroup struct {
	gene         string
	observations []domain.VariantObservation
}

// groupByGene partitions observations by gene in first-appearance order.
func groupByGene(observations []domain.VariantObservation) []*geneGroup {
	var groups []*geneGroup
	index := make(map[string]*geneGroup)
	for _, obs := range observations {
		g, ok := index[obs.Gene]
		if !ok {
			g = &geneGroup{gene: obs.Gene}
			index[obs.Gene] = g
			groups = append(groups, g)
		}
		g.observations = append(g.observations, obs)
	}
	return groups
}

// BuildResults returns one GeneResult per distinct gene in observations, in order of
// first appearance.
func (e *DiplotypeEngine) BuildResults(observations []domain.VariantObservation) []domain.GeneResult {
	groups := groupByGene(observations)
	results := make([]domain.GeneResult, 0, len(groups))
	for _, g := range groups {
		results = append(results, e.interpret(g.gene, g.observations))
	}
	return results
}

func (e *DiplotypeEngine) interpret(gene string, observations []domain.VariantObservation) domain.GeneResult {
	slots := newHaplotypeSlots(e.kb.ReferenceAllele(gene))
	var contributing []string
	for _, obs := range observations {
		if obs.Zygosity() == domain.HOMOZYGOUS_REFERENCE {
			continue
		}
		slots = slots.apply(e.kb, gene, obs)
		contributing = append(contributing, obs.Display())
	}
	if len(contributing) == 0 {
		contributing = []string{domain.NoContributingVariants}
	}

	first, second := slots.canonical(e.kb, gene)
	phenotype := AssignPhenotype(e.kb, gene, first, second)

	guidance, ok := e.kb.Guidance(gene, phenotype)
	if !ok {
		guidance = knowledgebase.Guidance{
			Level:          domain.DefaultGuidanceLevel,
			Recommendation: domain.NoGuidelineRecommendation,
		}
	}

	return domain.GeneResult{
		Gene:                 gene,
		Diplotype:            first + "/" + second,
		Phenotype:            phenotype,
		ContributingVariants: contributing,
		GuidanceLevel:        guidance.Level,
		Recommendation:       guidance.Recommendation,
	}
}

// EvaluateVariant interprets a single variant call on its own. It returns nil when the
// genotype carries no ALT copy.
func (e *DiplotypeEngine) EvaluateVariant(gene, star, genotype string) *domain.GeneResult {
	copies := GenotypeCopies(genotype)
	if copies == 0 {
		return nil
	}
	result := e.interpret(gene, []domain.VariantObservation{{
		Gene:        gene,
		StarAllele:  star,
		RawGenotype: genotype,
		Copies:      copies,
	}})
	return &result
}
