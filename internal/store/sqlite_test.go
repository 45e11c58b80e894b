package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pharmaguard.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePatient() *domain.Patient {
	age := 63
	return &domain.Patient{
		Name:           "Jane Roe",
		Age:            &age,
		Gender:         "female",
		MedicalHistory: "NSTEMI 2023",
		Condition:      "coronary artery disease",
		PrescribedDrug: "clopidogrel",
		DoctorID:       "doc-42",
	}
}

func sampleAnalysis(patientID string) *domain.Analysis {
	return &domain.Analysis{
		PatientID:        patientID,
		FileName:         "sample.vcf",
		FileSHA256:       "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		VariantsDetected: 1,
		GenesReported:    1,
		Summary:          "CYP2C19: *2/*1 → Intermediate Metabolizer (guidance 1A)",
		GeneProfiles: []domain.GeneProfile{{GeneResult: domain.GeneResult{
			Gene:                 "CYP2C19",
			Diplotype:            "*2/*1",
			Phenotype:            domain.IntermediateMetabolizer,
			ContributingVariants: []string{"*2 (rs4244285, GT=0/1)"},
			GuidanceLevel:        "1A",
			Recommendation:       "Consider alternative antiplatelet therapy; reduced clopidogrel efficacy.",
		}}},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	store, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_Patients(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	patient := samplePatient()
	require.NoError(t, store.CreatePatient(ctx, patient))
	assert.NotEmpty(t, patient.ID)
	assert.False(t, patient.CreatedAt.IsZero())

	got, err := store.GetPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.Name, got.Name)
	assert.Equal(t, patient.PrescribedDrug, got.PrescribedDrug)
	require.NotNil(t, got.Age)
	assert.Equal(t, 63, *got.Age)

	noAge := &domain.Patient{Name: "John Doe", DoctorID: "doc-42"}
	require.NoError(t, store.CreatePatient(ctx, noAge))
	got, err = store.GetPatient(ctx, noAge.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Age)

	all, err := store.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = store.GetPatient(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSQLiteStore_Analyses(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	patient := samplePatient()
	require.NoError(t, store.CreatePatient(ctx, patient))

	analysis := sampleAnalysis(patient.ID)
	require.NoError(t, store.SaveAnalysis(ctx, analysis))
	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, analysis.ID, analysis.GeneProfiles[0].AnalysisID)

	got, err := store.GetAnalysis(ctx, analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.Summary, got.Summary)
	require.Len(t, got.GeneProfiles, 1)
	assert.Equal(t, analysis.GeneProfiles[0].GeneResult, got.GeneProfiles[0].GeneResult)

	list, err := store.ListAnalysesByPatient(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, analysis.ID, list[0].ID)

	none, err := store.ListAnalysesByPatient(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.GetAnalysis(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Error(t, store.SaveAnalysis(ctx, sampleAnalysis("unknown-patient")), "foreign key should reject orphan analyses")
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()

	patient := samplePatient()
	require.NoError(t, source.CreatePatient(ctx, patient))
	require.NoError(t, source.SaveAnalysis(ctx, sampleAnalysis(patient.ID)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Len(t, export.Patients, 1)
	assert.Len(t, export.Analyses, 1)

	target := createTestStore(t)
	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	analyses, err := target.ListAnalysesByPatient(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "CYP2C19", analyses[0].GeneProfiles[0].Gene)

	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
