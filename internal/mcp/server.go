// Package mcp exposes the pharmacogenomic pipeline as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
	"github.com/pharmaguard-server/internal/service"
)

// Server is the PharmaGuard MCP server.
type Server struct {
	mcpServer *mcp.Server
	service   *service.AnalysisService
	kb        *knowledgebase.KnowledgeBase
	logger    *logrus.Logger
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg domain.MCPConfig, svc *service.AnalysisService, kb *knowledgebase.KnowledgeBase, logger *logrus.Logger) *Server {
	if kb == nil {
		kb = knowledgebase.Default()
	}

	name, version := cfg.ServerName, cfg.ServerVersion
	if name == "" {
		name = "pharmaguard"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		service:   svc,
		kb:        kb,
		logger:    logger,
	}
	s.registerTools()

	s.logger.WithFields(logrus.Fields{
		"server_name":    name,
		"server_version": version,
		"genes":          len(kb.Genes()),
	}).Info("MCP tools registered")

	return s
}

// Start serves MCP over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting PharmaGuard MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "analyze_vcf",
		Description: "Analyse a VCF file for pharmacogenomic variants. Returns per-gene diplotypes, " +
			"metabolizer phenotypes and dosing guidance. Supply vcf_content or a server-side path.",
	}, s.handleAnalyzeVCF)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "evaluate_variant",
		Description: "Interpret a single star allele call with its genotype, e.g. CYP2C19 *2 0/1.",
	}, s.handleEvaluateVariant)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_gene",
		Description: "Show the allele function table and dosing guidance for one pharmacogene.",
	}, s.handleLookupGene)
}
