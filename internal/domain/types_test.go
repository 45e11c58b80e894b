package domain

import (
	"errors"
	"testing"
)

func TestFunctionClassSeverityRank(t *testing.T) {
	tests := []struct {
		name     string
		value    FunctionClass
		expected int
	}{
		{"No function", NO_FUNCTION, 0},
		{"Decreased function", DECREASED_FUNCTION, 1},
		{"Normal function", NORMAL_FUNCTION, 2},
		{"Increased function", INCREASED_FUNCTION, 3},
		{"Unknown class ranks as normal", FunctionClass("mystery"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.SeverityRank(); got != tt.expected {
				t.Errorf("Expected rank %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFunctionClassIsValid(t *testing.T) {
	for _, f := range []FunctionClass{NO_FUNCTION, DECREASED_FUNCTION, NORMAL_FUNCTION, INCREASED_FUNCTION} {
		if !f.IsValid() {
			t.Errorf("Expected %s to be valid", f)
		}
	}
	if FunctionClass("partial").IsValid() {
		t.Error("Expected unknown class to be invalid")
	}
}

func TestParseGeneFamily(t *testing.T) {
	tests := []struct {
		input    string
		expected GeneFamily
	}{
		{"metabolizer", MetabolizerGene},
		{"transporter", TransporterGene},
		{"sensitivity", SensitivityGene},
		{"unclassified", Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGeneFamily(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if got.String() != tt.input {
				t.Errorf("Expected round trip to %q, got %q", tt.input, got.String())
			}
		})
	}

	if _, err := ParseGeneFamily("enzyme"); !errors.Is(err, ErrInvalidGeneFamily) {
		t.Errorf("Expected ErrInvalidGeneFamily, got %v", err)
	}
}

func TestZygosityFromCopies(t *testing.T) {
	tests := []struct {
		copies   int
		expected Zygosity
	}{
		{0, HOMOZYGOUS_REFERENCE},
		{1, HETEROZYGOUS},
		{2, HOMOZYGOUS_ALTERNATE},
	}

	for _, tt := range tests {
		if got := ZygosityFromCopies(tt.copies); got != tt.expected {
			t.Errorf("copies=%d: expected %s, got %s", tt.copies, tt.expected, got)
		}
	}
}

func TestVariantObservationDisplay(t *testing.T) {
	obs := VariantObservation{Gene: "CYP2C19", StarAllele: "*2", ReferenceID: "rs4244285", RawGenotype: "0/1", Copies: 1}

	expected := "*2 (rs4244285, GT=0/1)"
	if got := obs.Display(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
	if obs.Zygosity() != HETEROZYGOUS {
		t.Errorf("Expected HETEROZYGOUS, got %s", obs.Zygosity())
	}
}

func TestSummarize(t *testing.T) {
	t.Run("Empty results", func(t *testing.T) {
		if got := Summarize(nil); got != AllWildtypeSummary {
			t.Errorf("Expected wildtype summary, got %q", got)
		}
	})

	t.Run("Joined results", func(t *testing.T) {
		results := []GeneResult{
			{Gene: "CYP2C19", Diplotype: "*2/*1", Phenotype: IntermediateMetabolizer, GuidanceLevel: "1A"},
			{Gene: "VKORC1", Diplotype: "-1639G>A/*1", Phenotype: ModerateWarfarinSensitivity, GuidanceLevel: "2A"},
		}
		expected := "CYP2C19: *2/*1 → Intermediate Metabolizer (guidance 1A); " +
			"VKORC1: -1639G>A/*1 → Moderate Warfarin Sensitivity (guidance 2A)"
		if got := Summarize(results); got != expected {
			t.Errorf("Expected %q, got %q", expected, got)
		}
	})
}

func TestNewAnalysisResult(t *testing.T) {
	result := NewAnalysisResult(nil, nil)

	if result.VariantsDetected != 0 || result.GenesReported != 0 {
		t.Errorf("Expected zero counts, got %d/%d", result.VariantsDetected, result.GenesReported)
	}
	if result.GeneResults == nil {
		t.Error("Expected non-nil gene results slice")
	}
	if result.Summary != AllWildtypeSummary {
		t.Errorf("Expected wildtype summary, got %q", result.Summary)
	}
}

func TestPatientValidate(t *testing.T) {
	age := 42
	badAge := -3
	tests := []struct {
		name    string
		patient Patient
		field   string
	}{
		{"Valid patient", Patient{Name: "Jane Roe", DoctorID: "doc-1", Age: &age}, ""},
		{"Missing name", Patient{DoctorID: "doc-1"}, "name"},
		{"Blank name", Patient{Name: "   ", DoctorID: "doc-1"}, "name"},
		{"Missing doctor", Patient{Name: "Jane Roe"}, "doctor_id"},
		{"Negative age", Patient{Name: "Jane Roe", DoctorID: "doc-1", Age: &badAge}, "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, vErr.Field)
			}
		})
	}
}
