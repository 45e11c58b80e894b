// pharmaguard is the command-line front end of the pharmacogenomic pipeline.
//
// Usage:
//
//	pharmaguard analyze sample.vcf [more.vcf ...] [--format summary|json] [--concurrency N]
//	pharmaguard kb show CYP2D6
//	pharmaguard kb export -o kb.yaml
//	pharmaguard store export -o backup.json
//	pharmaguard store import backup.json
//	pharmaguard mcp install --binary ./bin/pharmaguard-mcp
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	configFile string
	kbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "pharmaguard",
		Short: "Pharmacogenomic diplotype and phenotype calling from VCF files",
		Long: "pharmaguard reads genotype-confirmed star-allele calls from VCF files and reports\n" +
			"per-gene diplotypes, metabolizer phenotypes and dosing guidance.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.kbPath, "kb", "", "knowledge base YAML (default: built-in tables)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newAnalyzeCmd(flags))
	root.AddCommand(newKBCmd(flags))
	root.AddCommand(newStoreCmd(flags))
	root.AddCommand(newMCPCmd(flags))
	return root
}

// loadConfig reads configuration and applies command-line overrides.
func (f *globalFlags) loadConfig() (*domain.Config, error) {
	manager, err := config.NewManagerWithFile(f.configFile)
	if err != nil {
		return nil, err
	}
	cfg := *manager.GetConfig()
	if f.kbPath != "" {
		cfg.KnowledgeBase.Path = f.kbPath
	}
	cfg.Logging.Level = f.logLevel
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stderr"
	return &cfg, nil
}

// runtime bootstraps the application for one command invocation.
func (f *globalFlags) runtime(cmd *cobra.Command, opts app.Options) (*app.Runtime, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	rt, err := app.Bootstrap(cmd.Context(), cfg, logger, opts)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := rt.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release resources")
		}
		logCloser.Close()
	}
	logger.WithFields(logrus.Fields{"command": cmd.Name()}).Debug("Runtime ready")
	return rt, cleanup, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
