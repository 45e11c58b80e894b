package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pharmaguard-server/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema if needed.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return newSQLiteStore(db, dbPath, logger), nil
}

func newSQLiteStore(db *sql.DB, dbPath string, logger *logrus.Logger) *SQLiteStore {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &SQLiteStore{db: db, dbPath: dbPath, log: logger}
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER,
		gender TEXT DEFAULT '',
		medical_history TEXT DEFAULT '',
		condition TEXT DEFAULT '',
		prescribed_drug TEXT DEFAULT '',
		doctor_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		file_name TEXT DEFAULT '',
		file_sha256 TEXT NOT NULL,
		variants_detected INTEGER NOT NULL,
		genes_reported INTEGER NOT NULL,
		summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS gene_profiles (
		id TEXT PRIMARY KEY,
		analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		patient_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		gene_name TEXT NOT NULL,
		diplotype TEXT NOT NULL,
		phenotype TEXT NOT NULL,
		contributing_variants TEXT NOT NULL DEFAULT '[]',
		cpic_level TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		UNIQUE(analysis_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_patients_doctor_id ON patients(doctor_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_patient_id ON analyses(patient_id);
	CREATE INDEX IF NOT EXISTS idx_gene_profiles_patient_gene ON gene_profiles(patient_id, gene_name);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const patientColumns = `id, name, age, gender, medical_history, condition, prescribed_drug, doctor_id, created_at`

func scanPatient(s scanner) (*domain.Patient, error) {
	p := &domain.Patient{}
	var age sql.NullInt64

	err := s.Scan(
		&p.ID, &p.Name, &age, &p.Gender, &p.MedicalHistory,
		&p.Condition, &p.PrescribedDrug, &p.DoctorID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	return p, nil
}

// CreatePatient inserts a new patient. ID and CreatedAt are assigned when empty.
func (s *SQLiteStore) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	var age interface{}
	if patient.Age != nil {
		age = *patient.Age
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		patient.ID,
		patient.Name,
		age,
		patient.Gender,
		patient.MedicalHistory,
		patient.Condition,
		patient.PrescribedDrug,
		patient.DoctorID,
		patient.CreatedAt,
	)
	if err != nil {
		s.log.WithError(err).WithField("patient_id", patient.ID).Error("Failed to create patient")
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *SQLiteStore) GetPatient(ctx context.Context, id string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)

	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return p, nil
}

// ListPatients returns all patients, newest first.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	result := []*domain.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SaveAnalysis stores an analysis and its gene profiles in one transaction.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (
			id, patient_id, file_name, file_sha256, variants_detected, genes_reported, summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		analysis.ID,
		analysis.PatientID,
		analysis.FileName,
		analysis.FileSHA256,
		analysis.VariantsDetected,
		analysis.GenesReported,
		analysis.Summary,
		analysis.CreatedAt,
	)
	if err != nil {
		s.log.WithError(err).WithField("analysis_id", analysis.ID).Error("Failed to create analysis")
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	for i := range analysis.GeneProfiles {
		gp := &analysis.GeneProfiles[i]
		if gp.ID == "" {
			gp.ID = uuid.New().String()
		}
		gp.AnalysisID = analysis.ID
		gp.PatientID = analysis.PatientID

		variants, err := json.Marshal(gp.ContributingVariants)
		if err != nil {
			return fmt.Errorf("failed to encode contributing variants: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO gene_profiles (
				id, analysis_id, patient_id, position, gene_name, diplotype, phenotype,
				contributing_variants, cpic_level, recommendation
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			gp.ID, gp.AnalysisID, gp.PatientID, i, gp.Gene, gp.Diplotype, gp.Phenotype,
			string(variants), gp.GuidanceLevel, gp.Recommendation,
		)
		if err != nil {
			return fmt.Errorf("failed to insert gene profile %s: %w", gp.Gene, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, patient_id, file_name, file_sha256, variants_detected, genes_reported, summary, created_at`

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	err := s.Scan(
		&a.ID, &a.PatientID, &a.FileName, &a.FileSHA256,
		&a.VariantsDetected, &a.GenesReported, &a.Summary, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAnalysis retrieves an analysis with its gene profiles.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	if err := s.loadProfiles(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalysesByPatient returns a patient's analyses, newest first.
func (s *SQLiteStore) ListAnalysesByPatient(ctx context.Context, patientID string) ([]*domain.Analysis, error) {
	return s.listAnalyses(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE patient_id = ? ORDER BY created_at DESC`, patientID)
}

func (s *SQLiteStore) listAnalyses(ctx context.Context, query string, args ...interface{}) ([]*domain.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}

	result := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, a := range result {
		if err := s.loadProfiles(ctx, a); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *SQLiteStore) loadProfiles(ctx context.Context, a *domain.Analysis) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, analysis_id, patient_id, gene_name, diplotype, phenotype,
			contributing_variants, cpic_level, recommendation
		FROM gene_profiles
		WHERE analysis_id = ?
		ORDER BY position
	`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to query gene profiles: %w", err)
	}
	defer rows.Close()

	a.GeneProfiles = []domain.GeneProfile{}
	for rows.Next() {
		var gp domain.GeneProfile
		var variants string
		if err := rows.Scan(
			&gp.ID, &gp.AnalysisID, &gp.PatientID, &gp.Gene, &gp.Diplotype, &gp.Phenotype,
			&variants, &gp.GuidanceLevel, &gp.Recommendation,
		); err != nil {
			return fmt.Errorf("failed to scan gene profile: %w", err)
		}
		if err := json.Unmarshal([]byte(variants), &gp.ContributingVariants); err != nil {
			return fmt.Errorf("failed to decode contributing variants: %w", err)
		}
		a.GeneProfiles = append(a.GeneProfiles, gp)
	}
	return rows.Err()
}

// ExportJSON exports all patients and analyses to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	patients, err := s.ListPatients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list patients: %w", err)
	}
	analyses, err := s.listAnalyses(ctx, `SELECT `+analysisColumns+` FROM analyses ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Patients:   patients,
		Analyses:   analyses,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports patients and analyses from a JSON reader. Records whose ID already
// exists are skipped.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, p := range export.Patients {
		if _, err := s.GetPatient(ctx, p.ID); err == nil {
			skipped++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing patient: %w", err)
		}
		if err := s.CreatePatient(ctx, p); err != nil {
			return imported, skipped, err
		}
		imported++
	}

	for _, a := range export.Analyses {
		if _, err := s.GetAnalysis(ctx, a.ID); err == nil {
			skipped++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing analysis: %w", err)
		}
		if err := s.SaveAnalysis(ctx, a); err != nil {
			return imported, skipped, err
		}
		imported++
	}

	s.log.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Store import finished")

	return imported, skipped, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Health pings the database file.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
