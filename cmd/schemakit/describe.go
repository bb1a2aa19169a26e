package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/schemakit/schemakit/schema"
)

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Show columns and constraints for a table",
	Long: `Display the full metadata for a table: columns with their types,
primary key, unique constraints, foreign keys, indexes, and check
constraints. Metadata comes from the cache unless --refresh is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, session *schema.Session) error {
			return describeTable(ctx, session, args[0])
		})
	},
}

// tableReport is the JSON shape emitted by describe --format json
type tableReport struct {
	Schema      *schema.TableSchema   `json:"schema"`
	PrimaryKey  *schema.Constraint    `json:"primaryKey,omitempty"`
	Uniques     []schema.Constraint   `json:"uniques,omitempty"`
	ForeignKeys []schema.ForeignKey   `json:"foreignKeys,omitempty"`
	Indexes     []schema.Index        `json:"indexes,omitempty"`
	Defaults    []schema.DefaultValue `json:"defaults,omitempty"`
	Checks      []schema.Check        `json:"checks,omitempty"`
}

func describeTable(ctx context.Context, session *schema.Session, table string) error {
	ts, err := session.TableSchema(ctx, table, refreshFlag)
	if err != nil {
		return err
	}
	if ts == nil {
		return fmt.Errorf("table not found: %s", table)
	}

	report := tableReport{Schema: ts}
	if report.PrimaryKey, err = session.TablePrimaryKey(ctx, table, refreshFlag); err != nil {
		return err
	}
	if report.Uniques, err = session.TableUniques(ctx, table, refreshFlag); err != nil {
		return err
	}
	if report.ForeignKeys, err = session.TableForeignKeys(ctx, table, refreshFlag); err != nil {
		return err
	}
	if report.Indexes, err = session.TableIndexes(ctx, table, refreshFlag); err != nil {
		return err
	}
	if report.Defaults, err = session.TableDefaults(ctx, table, refreshFlag); err != nil {
		return err
	}
	if report.Checks, err = session.TableChecks(ctx, table, refreshFlag); err != nil {
		return err
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(&report)
	return nil
}

func printReport(report *tableReport) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	ts := report.Schema
	bold.Printf("TABLE %s (%d columns)\n\n", ts.FullName, len(ts.Columns))

	cyan.Println("Columns:")
	for _, col := range ts.Columns {
		flags := []string{}
		if col.PrimaryKey {
			flags = append(flags, "primary key")
		}
		if col.AutoIncrement {
			flags = append(flags, "auto increment")
		}
		if !col.Nullable {
			flags = append(flags, "not null")
		}
		if col.Unsigned {
			flags = append(flags, "unsigned")
		}

		fmt.Printf("  %-24s %-12s %s", col.Name, col.Type, col.DBType)
		if len(flags) > 0 {
			fmt.Printf("  %s", strings.Join(flags, ", "))
		}
		fmt.Println()
	}
	fmt.Println()

	if report.PrimaryKey != nil {
		cyan.Println("Primary key:")
		printConstraint(green, report.PrimaryKey.Name, report.PrimaryKey.Columns, "")
		fmt.Println()
	}

	if len(report.Uniques) > 0 {
		cyan.Println("Unique constraints:")
		for _, u := range report.Uniques {
			printConstraint(green, u.Name, u.Columns, "")
		}
		fmt.Println()
	}

	if len(report.ForeignKeys) > 0 {
		cyan.Println("Foreign keys:")
		for _, fk := range report.ForeignKeys {
			target := fmt.Sprintf("-> %s(%s)", schema.Qualified(fk.ForeignSchema, fk.ForeignTable).Raw, strings.Join(fk.ForeignColumns, ", "))
			printConstraint(green, fk.Name, fk.Columns, target)
		}
		fmt.Println()
	}

	if len(report.Indexes) > 0 {
		cyan.Println("Indexes:")
		for _, idx := range report.Indexes {
			suffix := ""
			if idx.Unique {
				suffix = "unique"
			}
			printConstraint(green, idx.Name, idx.Columns, suffix)
		}
		fmt.Println()
	}

	if len(report.Checks) > 0 {
		cyan.Println("Check constraints:")
		for _, c := range report.Checks {
			printConstraint(green, c.Name, nil, c.Expression)
		}
		fmt.Println()
	}
}

func printConstraint(nameColor *color.Color, name string, columns []string, suffix string) {
	if name == "" {
		name = "(unnamed)"
	}
	nameColor.Printf("  %s", name)
	if len(columns) > 0 {
		fmt.Printf(" (%s)", strings.Join(columns, ", "))
	}
	if suffix != "" {
		fmt.Printf("  %s", suffix)
	}
	fmt.Println()
}
