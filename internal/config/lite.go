package config

import (
	"os"
	"path/filepath"
)

// dataDirEnv overrides the local data directory used by lite mode.
const dataDirEnv = "PHARMAGUARD_DATA_DIR"

// DefaultDataDir returns the directory holding the lite-mode database and exports.
func DefaultDataDir() string {
	if v := os.Getenv(dataDirEnv); v != "" {
		return v
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pharmaguard"
	}
	return filepath.Join(homeDir, ".pharmaguard")
}

// DefaultSQLitePath returns the default lite-mode database file.
func DefaultSQLitePath() string {
	return filepath.Join(DefaultDataDir(), "pharmaguard.db")
}

// ExportDir returns the directory for JSON exports next to the given database file.
func ExportDir(sqlitePath string) string {
	return filepath.Join(filepath.Dir(sqlitePath), "exports")
}

// EnsureDataDir creates the database directory and its export directory.
func EnsureDataDir(sqlitePath string) error {
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return err
	}
	return os.MkdirAll(ExportDir(sqlitePath), 0755)
}
