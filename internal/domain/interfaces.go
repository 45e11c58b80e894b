package domain

import (
	"context"
)

// PatientRepository defines the interface for patient persistence
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, id string) (*Patient, error)
	ListPatients(ctx context.Context) ([]*Patient, error)
}

// AnalysisRepository defines the interface for analysis and gene profile persistence
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, analysis *Analysis) error
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)
	ListAnalysesByPatient(ctx context.Context, patientID string) ([]*Analysis, error)
}

// ResultCache stores analysis results keyed by knowledge base and content digest
type ResultCache interface {
	Get(ctx context.Context, key string) (*AnalysisResult, bool)
	Set(ctx context.Context, key string, result *AnalysisResult) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
