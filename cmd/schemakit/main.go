package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemakit",
		Short: "Database schema introspection and metadata cache",
		Long: `Schemakit gives a uniform view of tables, columns, and constraints
across database engines, with versioned metadata caching. Connection
settings come from schemakit.yml, environment variables, or flags.`,
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
