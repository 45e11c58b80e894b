package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

func newKBCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect the allele function and guidance tables",
	}
	cmd.AddCommand(newKBListCmd(flags), newKBShowCmd(flags), newKBExportCmd(flags))
	return cmd
}

func loadKB(cmd *cobra.Command, flags *globalFlags) (*knowledgebase.KnowledgeBase, error) {
	rt, cleanup, err := flags.runtime(cmd, app.Options{})
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return rt.KnowledgeBase, nil
}

func newKBListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the genes in the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := loadKB(cmd, flags)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GENE\tFAMILY\tALLELES")
			for _, e := range kb.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Name, e.Family, len(e.Alleles))
			}
			return tw.Flush()
		},
	}
}

func newKBShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show GENE",
		Short: "Show allele functions and guidance for one gene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := loadKB(cmd, flags)
			if err != nil {
				return err
			}
			entry, ok := kb.Gene(args[0])
			if !ok {
				return fmt.Errorf("unknown gene %q (known: %s)", args[0], strings.Join(kb.Genes(), ", "))
			}
			return writeGene(cmd.OutOrStdout(), entry, kb.ReferenceAllele(entry.Name))
		},
	}
}

func writeGene(w io.Writer, e knowledgebase.GeneEntry, reference string) error {
	fmt.Fprintf(w, "%s (%s, reference %s)\n\n", e.Name, e.Family, reference)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALLELE\tFUNCTION")
	for _, a := range e.AllelesByFunction() {
		fmt.Fprintf(tw, "%s\t%s\n", a, e.Alleles[a])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	phenotypes := make([]string, 0, len(e.Guidance))
	for p := range e.Guidance {
		phenotypes = append(phenotypes, p)
	}
	sort.Strings(phenotypes)

	fmt.Fprintln(w)
	for _, p := range phenotypes {
		g := e.Guidance[p]
		fmt.Fprintf(w, "%s [%s]\n  %s\n", p, g.Level, g.Recommendation)
	}
	return nil
}

func newKBExportCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the active knowledge base as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := loadKB(cmd, flags)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return kb.WriteYAML(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := kb.WriteYAML(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default stdout)")
	return cmd
}
