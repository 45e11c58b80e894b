package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/store"
)

func newStoreCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Back up and restore the local patient store",
	}
	cmd.AddCommand(newStoreExportCmd(flags), newStoreImportCmd(flags))
	return cmd
}

func openLocalStore(cmd *cobra.Command, flags *globalFlags) (store.Store, func(), error) {
	rt, cleanup, err := flags.runtime(cmd, app.Options{Persistence: true})
	if err != nil {
		return nil, nil, err
	}
	st, ok := rt.Patients.(store.Store)
	if !ok {
		cleanup()
		return nil, nil, fmt.Errorf("backup requires the %s storage driver", app.DriverSQLite)
	}
	return st, cleanup, nil
}

func newStoreExportCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export patients and analyses as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cleanup, err := openLocalStore(cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if output == "-" {
				return st.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			if output == "" {
				sqlite, ok := st.(*store.SQLiteStore)
				if !ok {
					return fmt.Errorf("--output is required")
				}
				output = filepath.Join(config.ExportDir(sqlite.Path()),
					fmt.Sprintf("pharmaguard-%s.json", time.Now().UTC().Format("20060102T150405Z")))
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := st.ExportJSON(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, or - for stdout (default: export directory)")
	return cmd
}

func newStoreImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import patients and analyses from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openLocalStore(cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			imported, skipped, err := st.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d record(s), skipped %d existing\n", imported, skipped)
			return nil
		},
	}
}
