package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

// vcfFormField is the multipart field carrying the uploaded variant file.
const vcfFormField = "vcfFile"

type evaluateRequest struct {
	Gene     string `json:"gene" binding:"required"`
	Star     string `json:"star" binding:"required"`
	Genotype string `json:"genotype" binding:"required"`
}

type uploadResponse struct {
	Message          string               `json:"message"`
	AnalysisID       string               `json:"analysis_id"`
	VariantsDetected int                  `json:"variants_detected"`
	GenesReported    int                  `json:"genes_reported"`
	Summary          string               `json:"summary"`
	GeneResults      []domain.GeneResult  `json:"gene_results"`
	Data             []domain.GeneProfile `json:"data"`
}

type geneResponse struct {
	knowledgebase.GeneEntry
	AlleleOrder []string `json:"allele_order"`
}

func (s *Server) requirePersistence(c *gin.Context) bool {
	if s.deps.Patients == nil || s.deps.Analyses == nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "Patient storage is not configured", nil)
		return false
	}
	return true
}

// handleUploadVCF analyses an uploaded file and stores the result against a patient.
func (s *Server) handleUploadVCF(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	header, err := c.FormFile(vcfFormField)
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "No file uploaded", err)
		return
	}

	patientID := strings.TrimSpace(c.PostForm("patient_id"))
	if patientID == "" {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "Patient ID is required", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrVCFRead, "Failed to read uploaded file", err)
		return
	}
	defer file.Close()

	analysis, err := s.deps.Service.AnalyzeForPatient(c.Request.Context(), patientID, header.Filename, file)
	if err != nil {
		s.respondAnalysisError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"analysis_id":       analysis.ID,
		"patient_id":        patientID,
		"variants_detected": analysis.VariantsDetected,
		"genes_reported":    analysis.GenesReported,
	}).Info("VCF upload processed")

	c.JSON(http.StatusCreated, uploadResponse{
		Message:          "VCF processed successfully",
		AnalysisID:       analysis.ID,
		VariantsDetected: analysis.VariantsDetected,
		GenesReported:    analysis.GenesReported,
		Summary:          analysis.Summary,
		GeneResults:      analysis.Results(),
		Data:             analysis.GeneProfiles,
	})
}

// handleAnalyze runs the pipeline without persisting. It accepts a multipart upload or a raw body.
func (s *Server) handleAnalyze(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile(vcfFormField)
		if err != nil {
			respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "No file uploaded", err)
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, domain.ErrVCFRead, "Failed to read uploaded file", err)
			return
		}
		defer file.Close()
		body = file
	}

	result, err := s.deps.Service.Analyze(c.Request.Context(), body)
	if err != nil {
		s.respondAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "gene, star and genotype are required", err)
		return
	}

	result := s.deps.Service.Evaluate(req.Gene, req.Star, req.Genotype)
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) respondAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Patient not found", err)
	case errors.Is(err, domain.ErrInputTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, domain.ErrInvalidInput, "Variant file too large", err)
	default:
		s.logger.WithError(err).Error("Variant analysis failed")
		respondError(c, http.StatusInternalServerError, domain.ErrVCFRead, "Failed to process VCF", err)
	}
}

func (s *Server) handleCreatePatient(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	var patient domain.Patient
	if err := c.ShouldBindJSON(&patient); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid patient payload", err)
		return
	}
	// IDs and timestamps are server-assigned.
	patient.ID = ""
	patient.CreatedAt = time.Time{}

	if err := patient.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "Name and doctor_id are required", err)
		return
	}

	if err := s.deps.Patients.CreatePatient(c.Request.Context(), &patient); err != nil {
		respondStorageError(c, "Failed to create patient", err)
		return
	}

	c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleListPatients(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	patients, err := s.deps.Patients.ListPatients(c.Request.Context())
	if err != nil {
		respondStorageError(c, "Failed to list patients", err)
		return
	}
	if patients == nil {
		patients = []*domain.Patient{}
	}
	c.JSON(http.StatusOK, patients)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	patient, err := s.deps.Patients.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, "Patient not found", err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.deps.Patients.GetPatient(ctx, id); err != nil {
		respondStorageError(c, "Patient not found", err)
		return
	}

	analyses, err := s.deps.Analyses.ListAnalysesByPatient(ctx, id)
	if err != nil {
		respondStorageError(c, "Failed to list analyses", err)
		return
	}
	if analyses == nil {
		analyses = []*domain.Analysis{}
	}
	c.JSON(http.StatusOK, analyses)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	if !s.requirePersistence(c) {
		return
	}

	analysis, err := s.deps.Analyses.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStorageError(c, "Analysis not found", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleListGenes(c *gin.Context) {
	entries := s.deps.KnowledgeBase.Entries()
	genes := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		genes = append(genes, gin.H{
			"name":      e.Name,
			"family":    e.Family,
			"alleles":   len(e.Alleles),
			"reference": s.deps.KnowledgeBase.ReferenceAllele(e.Name),
		})
	}
	c.JSON(http.StatusOK, gin.H{"genes": genes})
}

func (s *Server) handleGetGene(c *gin.Context) {
	entry, ok := s.deps.KnowledgeBase.Gene(c.Param("gene"))
	if !ok {
		respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Gene not found", nil)
		return
	}
	c.JSON(http.StatusOK, geneResponse{GeneEntry: entry, AlleleOrder: entry.AllelesByFunction()})
}
