package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

// AnalysisRepository handles analysis and gene profile persistence in PostgreSQL
type AnalysisRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:  db,
		log: logger,
	}
}

// SaveAnalysis stores an analysis and its gene profiles in one transaction.
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning analysis transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analyses (
			id, patient_id, file_name, file_sha256, variants_detected, genes_reported, summary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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
		r.log.WithFields(logrus.Fields{
			"analysis_id": analysis.ID,
			"patient_id":  analysis.PatientID,
			"error":       err,
		}).Error("Failed to create analysis")
		return fmt.Errorf("creating analysis: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range analysis.GeneProfiles {
		gp := &analysis.GeneProfiles[i]
		if gp.ID == "" {
			gp.ID = uuid.New().String()
		}
		gp.AnalysisID = analysis.ID
		gp.PatientID = analysis.PatientID
		batch.Queue(`
			INSERT INTO gene_profiles (
				id, analysis_id, patient_id, position, gene_name, diplotype, phenotype,
				contributing_variants, cpic_level, recommendation
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			gp.ID, gp.AnalysisID, gp.PatientID, i, gp.Gene, gp.Diplotype, gp.Phenotype,
			gp.ContributingVariants, gp.GuidanceLevel, gp.Recommendation,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			r.log.WithFields(logrus.Fields{
				"analysis_id": analysis.ID,
				"error":       err,
			}).Error("Failed to create gene profiles")
			return fmt.Errorf("creating gene profiles: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing analysis: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"analysis_id":   analysis.ID,
		"patient_id":    analysis.PatientID,
		"gene_profiles": len(analysis.GeneProfiles),
	}).Info("Analysis created successfully")

	return nil
}

const analysisColumns = `id, patient_id, file_name, file_sha256, variants_detected, genes_reported, summary, created_at`

// GetAnalysis retrieves an analysis with its gene profiles
func (r *AnalysisRepository) GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("analysis %q: %w", id, domain.ErrNotFound)
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	analysis, err := scanAnalysis(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis %q: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis by ID")
		return nil, fmt.Errorf("getting analysis by ID: %w", err)
	}

	if err := r.loadProfiles(ctx, []*domain.Analysis{analysis}); err != nil {
		return nil, err
	}
	return analysis, nil
}

// ListAnalysesByPatient returns a patient's analyses, newest first
func (r *AnalysisRepository) ListAnalysesByPatient(ctx context.Context, patientID string) ([]*domain.Analysis, error) {
	analyses := []*domain.Analysis{}
	if _, err := uuid.Parse(patientID); err != nil {
		return analyses, nil
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE patient_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list analyses")
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}

	if err := r.loadProfiles(ctx, analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *AnalysisRepository) loadProfiles(ctx context.Context, analyses []*domain.Analysis) error {
	if len(analyses) == 0 {
		return nil
	}
	ids := make([]string, len(analyses))
	byID := make(map[string]*domain.Analysis, len(analyses))
	for i, a := range analyses {
		ids[i] = a.ID
		byID[a.ID] = a
		a.GeneProfiles = []domain.GeneProfile{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, analysis_id, patient_id, gene_name, diplotype, phenotype,
		       contributing_variants, cpic_level, recommendation
		FROM gene_profiles
		WHERE analysis_id = ANY($1::uuid[])
		ORDER BY analysis_id, position`, ids)
	if err != nil {
		return fmt.Errorf("loading gene profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gp domain.GeneProfile
		if err := rows.Scan(
			&gp.ID, &gp.AnalysisID, &gp.PatientID, &gp.Gene, &gp.Diplotype, &gp.Phenotype,
			&gp.ContributingVariants, &gp.GuidanceLevel, &gp.Recommendation,
		); err != nil {
			return fmt.Errorf("scanning gene profile: %w", err)
		}
		if a, ok := byID[gp.AnalysisID]; ok {
			a.GeneProfiles = append(a.GeneProfiles, gp)
		}
	}
	return rows.Err()
}

func scanAnalysis(row pgx.Row) (*domain.Analysis, error) {
	var a domain.Analysis
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.FileName,
		&a.FileSHA256,
		&a.VariantsDetected,
		&a.GenesReported,
		&a.Summary,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
