// Command marketopsd serves the Databento market-data API as MCP tools
// over stdio, with caching, retries, pooled connections, and an optional
// operational HTTP listener.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "marketopsd",
		Short:         "Market-data MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marketopsd %s\n", version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marketopsd: %v\n", err)
		os.Exit(1)
	}
}
