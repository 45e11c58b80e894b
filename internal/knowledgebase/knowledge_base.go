// Package knowledgebase holds the read-only pharmacogene tables used by the diplotype
// engine: allele function classes, gene families and per-phenotype dosing guidance.
package knowledgebase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pharmaguard-server/internal/domain"
)

// Guidance is the dosing recommendation attached to one gene phenotype.
type Guidance struct {
	Level          string `yaml:"level" json:"level"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// GeneEntry is the serialised table for one gene.
type GeneEntry struct {
	Name      string                          `yaml:"name" json:"name"`
	Family    string                          `yaml:"family" json:"family"`
	Reference string                          `yaml:"reference,omitempty" json:"reference,omitempty"`
	Alleles   map[string]domain.FunctionClass `yaml:"alleles" json:"alleles"`
	Guidance  map[string]Guidance             `yaml:"guidance" json:"guidance"`
}

type geneTable struct {
	entry  GeneEntry
	family domain.GeneFamily
}

// KnowledgeBase is an immutable set of gene tables. It is safe for concurrent use.
type KnowledgeBase struct {
	genes map[string]*geneTable
	order []string
}

var (
	defaultOnce sync.Once
	defaultKB   *KnowledgeBase
)

// Default returns the built-in knowledge base.
func Default() *KnowledgeBase {
	defaultOnce.Do(func() {
		kb, err := New(defaultGenes)
		if err != nil {
			panic(fmt.Sprintf("built-in knowledge base is invalid: %v", err))
		}
		defaultKB = kb
	})
	return defaultKB
}

// New validates the entries and builds a KnowledgeBase. Entry order is kept for Genes.
func New(entries []GeneEntry) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{genes: make(map[string]*geneTable, len(entries))}

	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("genes[%d].name", i), "gene name is required", e.Name)
		}
		if _, dup := kb.genes[name]; dup {
			return nil, domain.NewValidationError(fmt.Sprintf("genes[%d].name", i), "duplicate gene", name)
		}

		family, err := domain.ParseGeneFamily(e.Family)
		if err != nil {
			return nil, fmt.Errorf("gene %s: %w", name, err)
		}
		for allele, fc := range e.Alleles {
			if !fc.IsValid() {
				return nil, fmt.Errorf("gene %s allele %s: %w: %q", name, allele, domain.ErrInvalidFunctionClass, fc)
			}
		}

		entry := e
		entry.Name = name
		entry.Alleles = copyAlleles(e.Alleles)
		entry.Guidance = copyGuidance(e.Guidance)
		kb.genes[name] = &geneTable{entry: entry, family: family}
		kb.order = append(kb.order, name)
	}

	return kb, nil
}

// Function returns the function class of an allele. Unknown genes and alleles are normal function.
func (kb *KnowledgeBase) Function(gene, allele string) domain.FunctionClass {
	if t, ok := kb.genes[gene]; ok {
		if fc, ok := t.entry.Alleles[allele]; ok {
			return fc
		}
	}
	return domain.NORMAL_FUNCTION
}

// Severity returns the slot-competition rank of an allele. Lower is more severe.
func (kb *KnowledgeBase) Severity(gene, allele string) int {
	return kb.Function(gene, allele).SeverityRank()
}

// Family returns the phenotype rule family of a gene.
func (kb *KnowledgeBase) Family(gene string) domain.GeneFamily {
	if t, ok := kb.genes[gene]; ok {
		return t.family
	}
	return domain.Unclassified
}

// ReferenceAllele returns the wildtype label used to seed haplotype slots.
func (kb *KnowledgeBase) ReferenceAllele(gene string) string {
	if t, ok := kb.genes[gene]; ok && t.entry.Reference != "" {
		return t.entry.Reference
	}
	return domain.ReferenceAllele
}

// Guidance looks up the recommendation for a gene phenotype.
func (kb *KnowledgeBase) Guidance(gene, phenotype string) (Guidance, bool) {
	t, ok := kb.genes[gene]
	if !ok {
		return Guidance{}, false
	}
	g, ok := t.entry.Guidance[phenotype]
	return g, ok
}

// Genes lists the gene names in table order.
func (kb *KnowledgeBase) Genes() []string {
	out := make([]string, len(kb.order))
	copy(out, kb.order)
	return out
}

// Gene returns a copy of the table for one gene.
func (kb *KnowledgeBase) Gene(gene string) (GeneEntry, bool) {
	t, ok := kb.genes[gene]
	if !ok {
		return GeneEntry{}, false
	}
	entry := t.entry
	entry.Alleles = copyAlleles(t.entry.Alleles)
	entry.Guidance = copyGuidance(t.entry.Guidance)
	return entry, true
}

// Entries returns copies of all gene tables in table order.
func (kb *KnowledgeBase) Entries() []GeneEntry {
	out := make([]GeneEntry, 0, len(kb.order))
	for _, name := range kb.order {
		e, _ := kb.Gene(name)
		out = append(out, e)
	}
	return out
}

// AllelesByFunction lists a gene's alleles sorted by severity, then name.
func (e GeneEntry) AllelesByFunction() []string {
	alleles := make([]string, 0, len(e.Alleles))
	for a := range e.Alleles {
		alleles = append(alleles, a)
	}
	sort.Slice(alleles, func(i, j int) bool {
		ri, rj := e.Alleles[alleles[i]].SeverityRank(), e.Alleles[alleles[j]].SeverityRank()
		if ri != rj {
			return ri < rj
		}
		return alleles[i] < alleles[j]
	})
	return alleles
}

func copyAlleles(in map[string]domain.FunctionClass) map[string]domain.FunctionClass {
	out := make(map[string]domain.FunctionClass, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyGuidance(in map[string]Guidance) map[string]Guidance {
	out := make(map[string]Guidance, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
