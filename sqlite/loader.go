// Package sqlite implements schema.Loader against SQLite's PRAGMA
// interface and the sqlite_master catalog.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/schemakit/schemakit/schema"
)

// Loader loads table metadata from a SQLite database.
//
// SQLite has no schema namespaces beyond attached databases, so schema
// discovery is unsupported and schema qualifiers in table identities are
// ignored.
type Loader struct {
	schema.UnimplementedDiscovery
	db *sql.DB
}

// NewLoader creates a loader over an open SQLite connection.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// quoteIdent quotes an identifier for interpolation into a PRAGMA, which
// cannot take bind parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LoadTableSchema returns the table's column layout, or nil if the table
// does not exist.
func (l *Loader) LoadTableSchema(ctx context.Context, table schema.TableIdentity) (*schema.TableSchema, error) {
	query := "PRAGMA table_info(" + quoteIdent(table.Name) + ")"
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table_info for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	ts := &schema.TableSchema{
		Name:     table.Name,
		FullName: table.Name,
	}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declType   string
			dfltValue        sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := parseColumnType(declType)
		col.Name = name
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		if dfltValue.Valid {
			col.Default = dfltValue.String
		}
		// An INTEGER primary key aliases the rowid and auto-assigns.
		col.AutoIncrement = pk == 1 && col.Type == schema.TypeInteger && !col.Unsigned

		ts.Columns = append(ts.Columns, col)
		if pk > 0 {
			ts.PrimaryKey = append(ts.PrimaryKey, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(ts.Columns) == 0 {
		return nil, nil
	}
	return ts, nil
}

// LoadPrimaryKey returns the table's primary key, or nil if it has none.
// SQLite does not name primary key constraints.
func (l *Loader) LoadPrimaryKey(ctx context.Context, table schema.TableIdentity) (*schema.Constraint, error) {
	ts, err := l.LoadTableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	if ts == nil || len(ts.PrimaryKey) == 0 {
		return nil, nil
	}
	return &schema.Constraint{Columns: ts.PrimaryKey}, nil
}

// LoadUniques returns the table's unique constraints, derived from unique
// indexes of constraint origin.
func (l *Loader) LoadUniques(ctx context.Context, table schema.TableIdentity) ([]schema.Constraint, error) {
	indexes, err := l.indexList(ctx, table, func(origin string, unique bool) bool {
		return unique && origin == "u"
	})
	if err != nil {
		return nil, err
	}
	constraints := make([]schema.Constraint, len(indexes))
	for i, idx := range indexes {
		constraints[i] = schema.Constraint{Name: idx.Name, Columns: idx.Columns}
	}
	return constraints, nil
}

// LoadForeignKeys returns the table's foreign key constraints. SQLite does
// not name them; multi-column keys are grouped by their list id.
func (l *Loader) LoadForeignKeys(ctx context.Context, table schema.TableIdentity) ([]schema.ForeignKey, error) {
	query := "PRAGMA foreign_key_list(" + quoteIdent(table.Name) + ")"
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign_key_list for %s: %w", table.Raw, err)
	}
	defer rows.Close()

	var (
		fks    []schema.ForeignKey
		lastID = -1
	)
	for rows.Next() {
		var (
			id, seq                                int
			foreignTable, from, onUpdate, onDelete string
			to                                     sql.NullString
			match                                  string
		)
		if err := rows.Scan(&id, &seq, &foreignTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		foreignColumn := to.String // null references the parent's primary key

		if id == lastID {
			n := len(fks) - 1
			fks[n].Columns = append(fks[n].Columns, from)
			fks[n].ForeignColumns = append(fks[n].ForeignColumns, foreignColumn)
			continue
		}
		lastID = id
		fks = append(fks, schema.ForeignKey{
			Constraint:     schema.Constraint{Columns: []string{from}},
			ForeignTable:   foreignTable,
			ForeignColumns: []string{foreignColumn},
			OnUpdate:       mapReferentialAction(onUpdate),
			OnDelete:       mapReferentialAction(onDelete),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}

// LoadIndexes returns the table's named indexes. The implicit rowid primary
// key has no index entry in SQLite.
func (l *Loader) LoadIndexes(ctx context.Context, table schema.TableIdentity) ([]schema.Index, error) {
	return l.indexList(ctx, table, nil)
}

// indexList reads index_list and expands each index's columns; keep filters
// by origin and uniqueness when non-nil.
func (l *Loader) indexList(ctx context.Context, table schema.TableIdentity, keep func(origin string, unique bool) bool) ([]schema.Index, error) {
	query := "PRAGMA index_list(" + quoteIdent(table.Name) + ")"
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query index_list for %s: %w", table.Raw, err)
	}

	type indexRow struct {
		name    string
		unique  bool
		primary bool
	}
	var list []indexRow
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if keep != nil && !keep(origin, unique == 1) {
			continue
		}
		list = append(list, indexRow{name: name, unique: unique == 1, primary: origin == "pk"})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}
	rows.Close()

	indexes := make([]schema.Index, 0, len(list))
	for _, idx := range list {
		columns, err := l.indexColumns(ctx, idx.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, schema.Index{
			Name:    idx.name,
			Columns: columns,
			Unique:  idx.unique,
			Primary: idx.primary,
		})
	}
	return indexes, nil
}

func (l *Loader) indexColumns(ctx context.Context, index string) ([]string, error) {
	query := "PRAGMA index_info(" + quoteIdent(index) + ")"
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query index_info for %s: %w", index, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		// Expression index members have a null column name.
		columns = append(columns, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index columns: %w", err)
	}
	return columns, nil
}

// LoadDefaults returns the table's column default value constraints.
func (l *Loader) LoadDefaults(ctx context.Context, table schema.TableIdentity) ([]schema.DefaultValue, error) {
	ts, err := l.LoadTableSchema(ctx, table)
	if err != nil || ts == nil {
		return nil, err
	}
	var defaults []schema.DefaultValue
	for _, col := range ts.Columns {
		if col.Default == nil {
			continue
		}
		defaults = append(defaults, schema.DefaultValue{
			Constraint: schema.Constraint{Columns: []string{col.Name}},
			Value:      col.Default,
		})
	}
	return defaults, nil
}

// LoadChecks returns the table's check constraints, parsed out of the
// table's CREATE statement in sqlite_master.
func (l *Loader) LoadChecks(ctx context.Context, table schema.TableIdentity) ([]schema.Check, error) {
	var createSQL sql.NullString
	err := l.db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?",
		table.Name).Scan(&createSQL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query sqlite_master for %s: %w", table.Raw, err)
	}
	return parseChecks(createSQL.String), nil
}

// FindTableNames returns all table names; SQLite has a single namespace so
// the schema argument is ignored.
func (l *Loader) FindTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return l.masterNames(ctx, "table")
}

// FindViewNames returns all view names.
func (l *Loader) FindViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return l.masterNames(ctx, "view")
}

func (l *Loader) masterNames(ctx context.Context, objectType string) ([]string, error) {
	query := `
SELECT name FROM sqlite_master
WHERE type = ? AND name NOT LIKE 'sqlite_%'
ORDER BY name
`
	rows, err := l.db.QueryContext(ctx, query, objectType)
	if err != nil {
		return nil, fmt.Errorf("failed to query sqlite_master: %w", err)
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

// mapReferentialAction converts a foreign_key_list action string
func mapReferentialAction(action string) schema.ReferentialAction {
	switch action {
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
