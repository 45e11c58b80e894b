package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmaguard-server/internal/setup"
)

type mcpOptions struct {
	clientConfig string
	name         string
	binary       string
	dataDir      string
}

func (o *mcpOptions) configPath() (string, error) {
	if o.clientConfig != "" {
		return o.clientConfig, nil
	}
	return setup.DefaultClientConfigPath()
}

func newMCPCmd(flags *globalFlags) *cobra.Command {
	opts := &mcpOptions{}
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&opts.clientConfig, "client-config", "", "client configuration file (default: desktop client location)")
	cmd.PersistentFlags().StringVar(&opts.name, "name", setup.DefaultServerName, "server name in the client configuration")

	install := &cobra.Command{
		Use:   "install",
		Short: "Add or update the server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.configPath()
			if err != nil {
				return err
			}
			entry, err := setup.Register(path, setup.Options{
				Name:       opts.name,
				BinaryPath: opts.binary,
				ConfigFile: flags.configFile,
				DataDir:    opts.dataDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %q -> %s in %s\n", opts.name, entry.Command, path)
			return nil
		},
	}
	install.Flags().StringVar(&opts.binary, "binary", "", "MCP server executable (default: search PATH)")
	install.Flags().StringVar(&opts.dataDir, "data-dir", "", "PHARMAGUARD_DATA_DIR passed to the server")

	status := &cobra.Command{
		Use:   "status",
		Short: "Check the server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.configPath()
			if err != nil {
				return err
			}
			st, err := setup.Inspect(path, opts.name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client config: %s\n", st.ConfigPath)
			if st.Registered {
				fmt.Fprintf(out, "registered:    %s\n", st.Entry.Command)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "issue:         %s\n", issue)
			}
			if len(st.Issues) > 0 {
				return fmt.Errorf("%d issue(s) found", len(st.Issues))
			}
			return nil
		},
	}

	cmd.AddCommand(install, status)
	return cmd
}
