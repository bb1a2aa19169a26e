package schema

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by discovery operations the underlying engine
// has not implemented. It is not retryable: callers must either supply the
// information themselves or avoid the call.
var ErrNotSupported = errors.New("operation not supported by this engine")

// Loader loads raw metadata for one database engine. Engine packages
// implement it against their native catalogs; the Session normalizes and
// caches what it returns.
//
// Per-table methods return the kind's natural "absent" value when the table
// exists but has no such constraint: nil for LoadTableSchema and
// LoadPrimaryKey, an empty (or nil) slice for the rest. Any error a loader
// returns propagates unchanged to the Session's caller.
type Loader interface {
	// LoadTableSchema returns the table's column layout, or nil if the
	// table does not exist.
	LoadTableSchema(ctx context.Context, table TableIdentity) (*TableSchema, error)

	// LoadPrimaryKey returns the table's primary key, or nil if it has none.
	LoadPrimaryKey(ctx context.Context, table TableIdentity) (*Constraint, error)

	// LoadUniques returns the table's unique constraints.
	LoadUniques(ctx context.Context, table TableIdentity) ([]Constraint, error)

	// LoadForeignKeys returns the table's foreign key constraints.
	LoadForeignKeys(ctx context.Context, table TableIdentity) ([]ForeignKey, error)

	// LoadIndexes returns the table's indexes.
	LoadIndexes(ctx context.Context, table TableIdentity) ([]Index, error)

	// LoadDefaults returns the table's column default value constraints.
	LoadDefaults(ctx context.Context, table TableIdentity) ([]DefaultValue, error)

	// LoadChecks returns the table's check constraints.
	LoadChecks(ctx context.Context, table TableIdentity) ([]Check, error)

	// FindTableNames returns the names of all tables in schema; an empty
	// schema means the current/default schema.
	FindTableNames(ctx context.Context, schema string) ([]string, error)

	// FindSchemaNames returns the names of all schemas in the database.
	FindSchemaNames(ctx context.Context) ([]string, error)

	// FindViewNames returns the names of all views in schema. Engines
	// without view discovery return an empty slice rather than failing.
	FindViewNames(ctx context.Context, schema string) ([]string, error)
}

// UnimplementedDiscovery provides the default discovery behavior for engines
// that do not support it. Embed it in a Loader implementation to inherit
// these defaults:
//
//   - FindSchemaNames fails with ErrNotSupported
//   - FindViewNames returns an empty result
type UnimplementedDiscovery struct{}

// FindSchemaNames reports that schema discovery is not supported.
func (UnimplementedDiscovery) FindSchemaNames(ctx context.Context) ([]string, error) {
	return nil, ErrNotSupported
}

// FindViewNames returns no views. View discovery is optional and engines
// without it are not an error.
func (UnimplementedDiscovery) FindViewNames(ctx context.Context, schema string) ([]string, error) {
	return []string{}, nil
}
