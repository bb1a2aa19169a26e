package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/schemakit/schemakit/schema"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [table]",
	Short: "Invalidate cached metadata",
	Long: `Invalidate cached schema metadata. With no arguments the whole
session cache is cleared, including entries in the backing cache store.
With a table name only that table's metadata is dropped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, session *schema.Session) error {
			green := color.New(color.FgGreen)
			if len(args) == 1 {
				if err := session.RefreshTable(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to refresh table %s: %w", args[0], err)
				}
				green.Printf("Refreshed metadata for %s\n", args[0])
				return nil
			}
			if err := session.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to refresh metadata cache: %w", err)
			}
			green.Println("Refreshed all cached metadata")
			return nil
		})
	},
}
