package domain

import (
	"strings"
	"time"
)

// Patient is a person whose variant files are analysed.
type Patient struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Age            *int      `json:"age,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	Condition      string    `json:"condition,omitempty"`
	PrescribedDrug string    `json:"prescribed_drug,omitempty"`
	DoctorID       string    `json:"doctor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks the fields required to register a patient.
func (p *Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "name is required", p.Name)
	}
	if strings.TrimSpace(p.DoctorID) == "" {
		return NewValidationError("doctor_id", "doctor_id is required", p.DoctorID)
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return NewValidationError("age", "age must be between 0 and 150", *p.Age)
	}
	return nil
}

// Analysis records one persisted pipeline run for a patient.
type Analysis struct {
	ID               string        `json:"id"`
	PatientID        string        `json:"patient_id"`
	FileName         string        `json:"file_name"`
	FileSHA256       string        `json:"file_sha256"`
	VariantsDetected int           `json:"variants_detected"`
	GenesReported    int           `json:"genes_reported"`
	Summary          string        `json:"summary"`
	GeneProfiles     []GeneProfile `json:"gene_profiles"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Results returns the gene results held by the analysis profiles, in stored order.
func (a *Analysis) Results() []GeneResult {
	results := make([]GeneResult, len(a.GeneProfiles))
	for i, p := range a.GeneProfiles {
		results[i] = p.GeneResult
	}
	return results
}

// GeneProfile is one persisted gene result of an analysis.
type GeneProfile struct {
	ID         string `json:"id"`
	AnalysisID string `json:"analysis_id"`
	PatientID  string `json:"patient_id"`
	GeneResult
}
