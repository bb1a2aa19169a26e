package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schemakit/schemakit/schema"
)

var (
	// Global flags shared by the listing commands
	schemaFlag  string
	formatFlag  string
	noColorFlag bool
	verboseFlag bool
	refreshFlag bool
)

func init() {
	for _, cmd := range []*cobra.Command{tablesCmd, viewsCmd, schemasCmd, describeCmd} {
		cmd.Flags().StringVar(&schemaFlag, "schema", "", "Database schema to inspect (default: connection schema)")
		cmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: json or table")
		cmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
		cmd.Flags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	}
	describeCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "Bypass the metadata cache and reload from the database")
}

// withSession loads the configuration, opens a metadata session, and runs fn
func withSession(fn func(ctx context.Context, session *schema.Session) error) error {
	if noColorFlag {
		color.NoColor = true
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if schemaFlag == "" {
		schemaFlag = cfg.Database.Schema
	}

	logger := zap.NewNop()
	if verboseFlag {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}

	ctx := context.Background()
	session, cleanup, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, session)
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, session *schema.Session) error {
			names, err := session.TableNames(ctx, schemaFlag, refreshFlag)
			if err != nil {
				return err
			}
			return printNames("TABLES", names)
		})
	},
}

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List views in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, session *schema.Session) error {
			names, err := session.ViewNames(ctx, schemaFlag, refreshFlag)
			if err != nil {
				return err
			}
			return printNames("VIEWS", names)
		})
	},
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List schemas in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, session *schema.Session) error {
			names, err := session.SchemaNames(ctx, refreshFlag)
			if err != nil {
				if errors.Is(err, schema.ErrNotSupported) {
					return fmt.Errorf("the configured database engine does not support schema discovery")
				}
				return err
			}
			return printNames("SCHEMAS", names)
		})
	},
}

// printNames renders a name list as JSON or a colored listing
func printNames(header string, names []string) error {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sorted)
	}

	if len(sorted) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("%s (%d total)\n\n", header, len(sorted))
	for _, name := range sorted {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
