package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/service"
)

const (
	formatSummary = "summary"
	formatJSON    = "json"
)

type analyzeOptions struct {
	format      string
	concurrency int
}

type fileReport struct {
	File   string                 `json:"file"`
	Result *domain.AnalysisResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [file.vcf ...]",
		Short: "Call diplotypes and phenotypes for one or more VCF files",
		Long: "Analyse each VCF file and print per-gene results. With no files, or with \"-\",\n" +
			"the VCF is read from standard input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatSummary && opts.format != formatJSON {
				return fmt.Errorf("invalid --format %q (want %s or %s)", opts.format, formatSummary, formatJSON)
			}
			return runAnalyze(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", formatSummary, "output format: summary or json")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 4, "files analysed in parallel")
	return cmd
}

func runAnalyze(cmd *cobra.Command, flags *globalFlags, opts *analyzeOptions, args []string) error {
	rt, cleanup, err := flags.runtime(cmd, app.Options{Cache: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 0 {
		if cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
			return fmt.Errorf("no VCF files given and stdin is a terminal")
		}
		args = []string{"-"}
	}
	inputs := make([]service.NamedInput, 0, len(args))
	for _, a := range args {
		if a == "-" {
			stdin := cmd.InOrStdin()
			inputs = append(inputs, service.NamedInput{
				Name: "<stdin>",
				Open: func() (io.ReadCloser, error) { return io.NopCloser(stdin), nil },
			})
			continue
		}
		inputs = append(inputs, service.FileInput(a))
	}

	items, err := rt.Service.AnalyzeBatch(cmd.Context(), inputs, opts.concurrency)
	if err != nil {
		return err
	}

	reports := make([]fileReport, len(items))
	failed := 0
	for i, item := range items {
		reports[i] = fileReport{File: item.Name, Result: item.Result}
		if item.Err != nil {
			reports[i].Error = item.Err.Error()
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if opts.format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else if err := writeSummary(out, reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}

func writeSummary(w io.Writer, reports []fileReport) error {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "%s: error: %s\n", r.File, r.Error)
			continue
		}

		fmt.Fprintf(w, "%s: %d variant(s), %d gene(s)\n", r.File, r.Result.VariantsDetected, r.Result.GenesReported)
		if len(r.Result.GeneResults) == 0 {
			fmt.Fprintf(w, "  %s\n", r.Result.Summary)
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  GENE\tDIPLOTYPE\tPHENOTYPE\tGUIDANCE\tEVIDENCE")
		for _, g := range r.Result.GeneResults {
			evidence := g.ContributingVariants
			if len(evidence) == 0 {
				evidence = []string{"-"}
			}
			for j, v := range evidence {
				if j == 0 {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", g.Gene, g.Diplotype, g.Phenotype, g.GuidanceLevel, v)
				} else {
					fmt.Fprintf(tw, "  \t\t\t\t%s\n", v)
				}
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, g := range r.Result.GeneResults {
			fmt.Fprintf(w, "  %s: %s\n", g.Gene, g.Recommendation)
		}
	}
	return nil
}

// stdinIsTerminal reports whether stdin is an interactive terminal.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
