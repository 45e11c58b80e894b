// Package app assembles the analysis pipeline and its storage, cache and knowledge base
// from configuration. The server, MCP and CLI binaries all start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/cache"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/database"
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
	"github.com/pharmaguard-server/internal/repository"
	"github.com/pharmaguard-server/internal/service"
	"github.com/pharmaguard-server/internal/store"
)

// Storage drivers accepted in storage.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options controls which optional parts Bootstrap builds.
type Options struct {
	// Persistence opens the configured patient and analysis store.
	Persistence bool
	// Cache enables the result cache.
	Cache bool
}

// Runtime is the assembled application.
type Runtime struct {
	Config        *domain.Config
	Logger        *logrus.Logger
	KnowledgeBase *knowledgebase.KnowledgeBase
	Service       *service.AnalysisService
	Patients      domain.PatientRepository
	Analyses      domain.AnalysisRepository
	Health        interface{ Health(context.Context) error }

	closers []io.Closer
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// Bootstrap builds a Runtime from cfg. On error every resource opened so far is released.
func Bootstrap(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, opts Options) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	rt.KnowledgeBase, err = knowledgebase.FromConfig(cfg.KnowledgeBase.Path)
	if err != nil {
		return rt, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"path":  cfg.KnowledgeBase.Path,
		"genes": len(rt.KnowledgeBase.Genes()),
	}).Info("Knowledge base loaded")

	var resultCache domain.ResultCache
	if opts.Cache {
		c, closer := cache.New(ctx, cfg.Cache, logger)
		resultCache = c
		rt.closers = append(rt.closers, closer)
	}

	if opts.Persistence {
		if err := rt.openStorage(ctx); err != nil {
			return rt, err
		}
	}

	rt.Service = service.NewAnalysisService(service.AnalysisServiceOptions{
		KnowledgeBase: rt.KnowledgeBase,
		Cache:         resultCache,
		Patients:      rt.Patients,
		Analyses:      rt.Analyses,
		MaxBytes:      cfg.Upload.MaxBytes,
	}, logger)

	return rt, nil
}

func (rt *Runtime) openStorage(ctx context.Context) error {
	switch rt.Config.Storage.Driver {
	case DriverSQLite, "":
		path := rt.Config.Storage.SQLitePath
		if path == "" {
			path = config.DefaultSQLitePath()
		}
		if err := config.EnsureDataDir(path); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(path, rt.Logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		rt.closers = append(rt.closers, st)
		rt.Patients, rt.Analyses, rt.Health = st, st, st

	case DriverPostgres:
		dbConfig := database.ConfigFromDomain(rt.Config.Database)
		if err := database.Migrate(ctx, dbConfig, rt.Logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		db, err := database.NewConnection(ctx, dbConfig, rt.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.closers = append(rt.closers, closeFunc(func() error { db.Close(); return nil }))
		rt.Patients = repository.NewPatientRepository(db.Pool, rt.Logger)
		rt.Analyses = repository.NewAnalysisRepository(db.Pool, rt.Logger)
		rt.Health = db

	default:
		return fmt.Errorf("unsupported storage driver %q", rt.Config.Storage.Driver)
	}

	rt.Logger.WithField("driver", rt.Config.Storage.Driver).Info("Storage ready")
	return nil
}

// Close releases resources in reverse opening order.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
