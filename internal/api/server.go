// Package api exposes the analysis pipeline, patient records and knowledge base over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
	"github.com/pharmaguard-server/internal/middleware"
	"github.com/pharmaguard-server/internal/service"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP handlers call into.
type Dependencies struct {
	Service       *service.AnalysisService
	Patients      domain.PatientRepository
	Analyses      domain.AnalysisRepository
	KnowledgeBase *knowledgebase.KnowledgeBase
	Health        HealthChecker
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	started       time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.KnowledgeBase == nil {
		deps.KnowledgeBase = knowledgebase.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(rateLimit(cfg.RateLimit))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}

	s := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        logger,
		router:        router,
		started:       time.Now(),
	}

	s.setupRoutes()

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/upload/vcf", s.handleUploadVCF)

		patients := v1.Group("/patients")
		patients.GET("", s.handleListPatients)
		patients.POST("", s.handleCreatePatient)
		patients.GET("/:id", s.handleGetPatient)
		patients.GET("/:id/analyses", s.handleListAnalyses)

		v1.GET("/analyses/:id", s.handleGetAnalysis)

		kb := v1.Group("/knowledge-base")
		kb.GET("/genes", s.handleListGenes)
		kb.GET("/genes/:gene", s.handleGetGene)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
		"genes":     len(s.deps.KnowledgeBase.Genes()),
	}

	if s.deps.Health != nil {
		if err := s.deps.Health.Health(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["storage"] = err.Error()
		} else {
			body["storage"] = "ok"
		}
	}

	c.JSON(status, body)
}

// respondError writes an APIError tagged with the request correlation id.
func respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

// respondStorageError maps repository errors onto HTTP statuses.
func respondStorageError(c *gin.Context, message string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, message, err)
		return
	}
	respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, message, err)
}
