// Package store provides the single-file SQLite backend used in lite mode. It keeps
// patients, analyses and gene profiles locally and can move them between installations
// as JSON.
package store

import (
	"context"
	"io"
	"time"

	"github.com/pharmaguard-server/internal/domain"
)

// Store is the lite-mode persistence surface.
type Store interface {
	domain.PatientRepository
	domain.AnalysisRepository

	// ExportJSON writes every patient and analysis to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads an export, skipping records whose ID already exists.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// Export is the JSON document written by ExportJSON.
type Export struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Patients   []*domain.Patient  `json:"patients"`
	Analyses   []*domain.Analysis `json:"analyses"`
}

const exportVersion = "1.0"
