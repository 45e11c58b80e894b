package knowledgebase

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func TestDefault_AlleleFunctions(t *testing.T) {
	kb := Default()

	tests := []struct {
		gene, allele string
		expected     domain.FunctionClass
	}{
		{"CYP2C19", "*2", domain.NO_FUNCTION},
		{"CYP2C19", "*17", domain.INCREASED_FUNCTION},
		{"CYP2D6", "*10", domain.DECREASED_FUNCTION},
		{"CYP2D6", "*2", domain.NORMAL_FUNCTION},
		{"CYP2C9", "*3", domain.DECREASED_FUNCTION},
		{"SLCO1B1", "*5", domain.NO_FUNCTION},
		{"TPMT", "*3A", domain.NO_FUNCTION},
		{"DPYD", "*2A", domain.NO_FUNCTION},
		{"VKORC1", "-1639G>A", domain.INCREASED_FUNCTION},
		{"CYP2C19", "*99", domain.NORMAL_FUNCTION},
		{"BRCA1", "*2", domain.NORMAL_FUNCTION},
	}

	for _, tt := range tests {
		t.Run(tt.gene+tt.allele, func(t *testing.T) {
			assert.Equal(t, tt.expected, kb.Function(tt.gene, tt.allele))
			assert.Equal(t, tt.expected.SeverityRank(), kb.Severity(tt.gene, tt.allele))
		})
	}
}

func TestDefault_Families(t *testing.T) {
	kb := Default()

	for _, gene := range []string{"CYP2D6", "CYP2C19", "CYP2C9", "TPMT", "DPYD"} {
		assert.Equal(t, domain.MetabolizerGene, kb.Family(gene), gene)
	}
	assert.Equal(t, domain.TransporterGene, kb.Family("SLCO1B1"))
	assert.Equal(t, domain.SensitivityGene, kb.Family("VKORC1"))
	assert.Equal(t, domain.Unclassified, kb.Family("G6PD"))
	assert.Equal(t, "*1", kb.ReferenceAllele("CYP2C19"))
	assert.Equal(t, "*1", kb.ReferenceAllele("G6PD"))
}

func TestDefault_Guidance(t *testing.T) {
	kb := Default()

	g, ok := kb.Guidance("CYP2C19", domain.PoorMetabolizer)
	require.True(t, ok)
	assert.Equal(t, "1A", g.Level)
	assert.Contains(t, g.Recommendation, "clopidogrel")

	_, ok = kb.Guidance("CYP2C9", domain.UltrarapidMetabolizer)
	assert.False(t, ok)

	_, ok = kb.Guidance("G6PD", domain.NormalMetabolizer)
	assert.False(t, ok)
}

func TestGenes_OrderAndCopy(t *testing.T) {
	kb := Default()

	genes := kb.Genes()
	assert.Equal(t, []string{"CYP2C19", "CYP2D6", "CYP2C9", "SLCO1B1", "TPMT", "DPYD", "VKORC1"}, genes)

	genes[0] = "mutated"
	assert.Equal(t, "CYP2C19", kb.Genes()[0])

	entry, ok := kb.Gene("CYP2D6")
	require.True(t, ok)
	entry.Alleles["*4"] = domain.NORMAL_FUNCTION
	assert.Equal(t, domain.NO_FUNCTION, kb.Function("CYP2D6", "*4"))
}

func TestAllelesByFunction(t *testing.T) {
	entry, ok := Default().Gene("CYP2D6")
	require.True(t, ok)

	assert.Equal(t, []string{"*4", "*5", "*10", "*17", "*41", "*1", "*2"}, entry.AllelesByFunction())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		entries []GeneEntry
		target  error
	}{
		{
			name:    "unknown family",
			entries: []GeneEntry{{Name: "G6PD", Family: "enzyme"}},
			target:  domain.ErrInvalidGeneFamily,
		},
		{
			name: "unknown function class",
			entries: []GeneEntry{{Name: "G6PD", Family: "metabolizer", Alleles: map[string]domain.FunctionClass{
				"*2": "partial",
			}}},
			target: domain.ErrInvalidFunctionClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "unexpected error: %v", err)
		})
	}

	t.Run("duplicate gene", func(t *testing.T) {
		_, err := New([]GeneEntry{{Name: "TPMT", Family: "metabolizer"}, {Name: "TPMT", Family: "metabolizer"}})
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "genes[1].name", vErr.Field)
	})
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().WriteYAML(&buf))

	kb, err := Load(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(Default().Entries(), kb.Entries()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFingerprint(t *testing.T) {
	base, err := Default().Fingerprint()
	require.NoError(t, err)
	assert.Len(t, base, 64)

	same, err := New(Default().Entries())
	require.NoError(t, err)
	fp, err := same.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, base, fp)

	entries := Default().Entries()
	entries[0].Alleles["*99"] = domain.NO_FUNCTION
	changed, err := New(entries)
	require.NoError(t, err)
	fp, err = changed.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, base, fp)
}

func TestLoad_ReferenceOverride(t *testing.T) {
	doc := `
genes:
  - name: SLCO1B1
    family: transporter
    reference: "*1a"
    alleles:
      "*5": no_function
    guidance:
      Poor Function:
        level: 1A
        recommendation: Avoid simvastatin.
`
	kb, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "*1a", kb.ReferenceAllele("SLCO1B1"))
	assert.Equal(t, domain.TransporterGene, kb.Family("SLCO1B1"))
	g, ok := kb.Guidance("SLCO1B1", domain.PoorFunction)
	require.True(t, ok)
	assert.Equal(t, "Avoid simvastatin.", g.Recommendation)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("genes:\n  - name: TPMT\n    family: metabolizer\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Default().WriteYAML(f))
	require.NoError(t, f.Close())

	kb, err := FromConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Genes(), kb.Genes())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	builtin, err := FromConfig("")
	require.NoError(t, err)
	assert.Same(t, Default(), builtin)
}
