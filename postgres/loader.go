// Package postgres implements schema.Loader against the PostgreSQL system
// catalogs. It works over database/sql with either the lib/pq or the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/schemakit/schemakit/schema"
)

// Loader loads table metadata from information_schema and pg_catalog.
type Loader struct {
	db *sql.DB
}

// NewLoader creates a loader over an open PostgreSQL connection pool.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// currentSchemaExpr resolves an empty schema argument to the connection's
// current schema inside the query.
const currentSchemaExpr = "COALESCE(NULLIF($2, ''), CURRENT_SCHEMA())"

// LoadTableSchema returns the table's column layout, or nil if the table
// does not exist.
func (l *Loader) LoadTableSchema(ctx context.Context, table schema.TableIdentity) (*schema.TableSchema, error) {
	query := `
SELECT column_name, data_type, udt_name, is_nullable, is_identity, column_default,
       COALESCE(character_maximum_length, 0),
       COALESCE(numeric_precision, 0),
       COALESCE(numeric_scale, 0)
FROM information_schema.columns
WHERE table_name = $1 AND table_schema = ` + currentSchemaExpr + `
ORDER BY ordinal_position
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	ts := &schema.TableSchema{
		Name:     table.Name,
		Schema:   table.Schema,
		FullName: table.Raw,
	}
	for rows.Next() {
		var (
			col                    schema.ColumnSchema
			dataType, udtName      string
			isNullable, isIdentity string
			columnDefault          sql.NullString
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &isNullable, &isIdentity,
			&columnDefault, &col.Size, &col.Precision, &col.Scale); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = mapColumnType(dataType, udtName)
		col.DBType = udtName
		col.Nullable = isNullable == "YES"
		col.AutoIncrement = isIdentity == "YES" ||
			(columnDefault.Valid && strings.HasPrefix(columnDefault.String, "nextval("))
		if columnDefault.Valid && !col.AutoIncrement {
			col.Default = columnDefault.String
		}
		ts.Columns = append(ts.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(ts.Columns) == 0 {
		return nil, nil
	}

	pk, err := l.LoadPrimaryKey(ctx, table)
	if err != nil {
		return nil, err
	}
	if pk != nil {
		ts.PrimaryKey = pk.Columns
		for _, name := range pk.Columns {
			if c := ts.Column(name); c != nil {
				c.PrimaryKey = true
			}
		}
	}
	return ts, nil
}

// LoadPrimaryKey returns the table's primary key, or nil if it has none.
func (l *Loader) LoadPrimaryKey(ctx context.Context, table schema.TableIdentity) (*schema.Constraint, error) {
	constraints, err := l.keyConstraints(ctx, table, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	if len(constraints) == 0 {
		return nil, nil
	}
	return &constraints[0], nil
}

// LoadUniques returns the table's unique constraints.
func (l *Loader) LoadUniques(ctx context.Context, table schema.TableIdentity) ([]schema.Constraint, error) {
	return l.keyConstraints(ctx, table, "UNIQUE")
}

// keyConstraints loads named column-list constraints of one type, with
// columns in ordinal order.
func (l *Loader) keyConstraints(ctx context.Context, table schema.TableIdentity, constraintType string) ([]schema.Constraint, error) {
	query := `
SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
 AND kcu.table_name = tc.table_name
WHERE tc.table_name = $1
  AND tc.table_schema = ` + currentSchemaExpr + `
  AND tc.constraint_type = $3
ORDER BY tc.constraint_name, kcu.ordinal_position
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema, constraintType)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s constraints for %s: %w",
			strings.ToLower(constraintType), table.Raw, err)
	}
	defer rows.Close()

	var constraints []schema.Constraint
	for rows.Next() {
		var name, column string
		if err := rows.Scan(&name, &column); err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		if n := len(constraints); n > 0 && constraints[n-1].Name == name {
			constraints[n-1].Columns = append(constraints[n-1].Columns, column)
			continue
		}
		constraints = append(constraints, schema.Constraint{Name: name, Columns: []string{column}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating constraints: %w", err)
	}
	return constraints, nil
}

// LoadForeignKeys returns the table's foreign key constraints. Referenced
// columns come from the targeted unique constraint's key_column_usage,
// matched row for row via position_in_unique_constraint so composite keys
// keep their column pairing.
func (l *Loader) LoadForeignKeys(ctx context.Context, table schema.TableIdentity) ([]schema.ForeignKey, error) {
	query := `
SELECT tc.constraint_name,
       kcu.column_name,
       kcu2.table_schema,
       kcu2.table_name,
       kcu2.column_name,
       rc.update_rule,
       rc.delete_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
JOIN information_schema.referential_constraints rc
  ON rc.constraint_name = tc.constraint_name
 AND rc.constraint_schema = tc.table_schema
JOIN information_schema.key_column_usage kcu2
  ON kcu2.constraint_name = rc.unique_constraint_name
 AND kcu2.constraint_schema = rc.unique_constraint_schema
 AND kcu2.ordinal_position = kcu.position_in_unique_constraint
WHERE tc.table_name = $1
  AND tc.table_schema = ` + currentSchemaExpr + `
  AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY tc.constraint_name, kcu.ordinal_position
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var (
			name, column, foreignSchema, foreignTable, foreignColumn string
			updateRule, deleteRule                                   string
		)
		if err := rows.Scan(&name, &column, &foreignSchema, &foreignTable,
			&foreignColumn, &updateRule, &deleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if n := len(fks); n > 0 && fks[n-1].Name == name {
			fks[n-1].Columns = append(fks[n-1].Columns, column)
			fks[n-1].ForeignColumns = append(fks[n-1].ForeignColumns, foreignColumn)
			continue
		}
		fks = append(fks, schema.ForeignKey{
			Constraint:     schema.Constraint{Name: name, Columns: []string{column}},
			ForeignSchema:  foreignSchema,
			ForeignTable:   foreignTable,
			ForeignColumns: []string{foreignColumn},
			OnUpdate:       mapReferentialAction(updateRule),
			OnDelete:       mapReferentialAction(deleteRule),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}

// LoadIndexes returns the table's indexes, including the primary key index.
func (l *Loader) LoadIndexes(ctx context.Context, table schema.TableIdentity) ([]schema.Index, error) {
	query := `
SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE t.relname = $1
  AND n.nspname = ` + currentSchemaExpr + `
ORDER BY i.relname, array_position(ix.indkey, a.attnum)
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var (
			name, column    string
			unique, primary bool
		)
		if err := rows.Scan(&name, &column, &unique, &primary); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}
		indexes = append(indexes, schema.Index{
			Name:    name,
			Columns: []string{column},
			Unique:  unique,
			Primary: primary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}
	return indexes, nil
}

// LoadDefaults returns the table's column default value constraints.
// Serial/identity defaults are not user defaults and are skipped.
func (l *Loader) LoadDefaults(ctx context.Context, table schema.TableIdentity) ([]schema.DefaultValue, error) {
	query := `
SELECT column_name, column_default
FROM information_schema.columns
WHERE table_name = $1
  AND table_schema = ` + currentSchemaExpr + `
  AND column_default IS NOT NULL
ORDER BY ordinal_position
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query defaults for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	var defaults []schema.DefaultValue
	for rows.Next() {
		var column, value string
		if err := rows.Scan(&column, &value); err != nil {
			return nil, fmt.Errorf("failed to scan default: %w", err)
		}
		if strings.HasPrefix(value, "nextval(") {
			continue
		}
		defaults = append(defaults, schema.DefaultValue{
			Constraint: schema.Constraint{Columns: []string{column}},
			Value:      value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating defaults: %w", err)
	}
	return defaults, nil
}

// LoadChecks returns the table's check constraints.
func (l *Loader) LoadChecks(ctx context.Context, table schema.TableIdentity) ([]schema.Check, error) {
	query := `
SELECT con.conname, pg_get_constraintdef(con.oid), a.attname
FROM pg_constraint con
JOIN pg_class t ON t.oid = con.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(con.conkey)
WHERE con.contype = 'c'
  AND t.relname = $1
  AND n.nspname = ` + currentSchemaExpr + `
ORDER BY con.conname, a.attnum
`
	rows, err := l.db.QueryContext(ctx, query, table.Name, table.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query check constraints for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	var checks []schema.Check
	for rows.Next() {
		var (
			name, definition string
			column           sql.NullString
		)
		if err := rows.Scan(&name, &definition, &column); err != nil {
			return nil, fmt.Errorf("failed to scan check constraint: %w", err)
		}
		if n := len(checks); n > 0 && checks[n-1].Name == name {
			if column.Valid {
				checks[n-1].Columns = append(checks[n-1].Columns, column.String)
			}
			continue
		}
		check := schema.Check{
			Constraint: schema.Constraint{Name: name},
			Expression: strings.TrimPrefix(definition, "CHECK "),
		}
		if column.Valid {
			check.Columns = []string{column.String}
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check constraints: %w", err)
	}
	return checks, nil
}

// FindTableNames returns all base table names in schema; an empty schema
// means the connection's current schema.
func (l *Loader) FindTableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema = COALESCE(NULLIF($1, ''), CURRENT_SCHEMA())
ORDER BY table_name
`
	return l.queryNames(ctx, query, schemaName)
}

// FindSchemaNames returns all user schema names in the database.
func (l *Loader) FindSchemaNames(ctx context.Context) ([]string, error) {
	query := `
SELECT schema_name
FROM information_schema.schemata
WHERE schema_name NOT LIKE 'pg\_%' AND schema_name <> 'information_schema'
ORDER BY schema_name
`
	return l.queryNames(ctx, query)
}

// FindViewNames returns all view names in schema.
func (l *Loader) FindViewNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.views
WHERE table_schema = COALESCE(NULLIF($1, ''), CURRENT_SCHEMA())
ORDER BY table_name
`
	return l.queryNames(ctx, query, schemaName)
}

func (l *Loader) queryNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}

// mapReferentialAction converts an information_schema rule string
func mapReferentialAction(rule string) schema.ReferentialAction {
	switch rule {
	case "RESTRICT":
		return schema.ActionRestrict
	case "CASCADE":
		return schema.ActionCascade
	case "SET NULL":
		return schema.ActionSetNull
	case "SET DEFAULT":
		return schema.ActionSetDefault
	default:
		return schema.ActionNoAction
	}
}
