package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemakit/schemakit/cache"
)

// Config configures a Session.
type Config struct {
	// TablePrefix is substituted for the "%" placeholder when resolving
	// templated table names like "{{%posts}}".
	TablePrefix string

	// Store persists metadata across processes. Nil disables cross-process
	// caching entirely; the Session then memoizes in-process only.
	Store cache.Store

	// CacheTTL bounds how long persisted entries live in the Store as a
	// secondary safety net behind tag invalidation. Zero uses the Store's
	// default TTL.
	CacheTTL time.Duration

	// CacheTag scopes tag invalidation. Sessions sharing a tag invalidate
	// each other's entries on Refresh. Empty derives a unique per-session
	// tag.
	CacheTag string

	// Exclude lists table names (prefix placeholders allowed) that must
	// never be cached at any layer. Reads against an excluded table always
	// hit the engine loader.
	Exclude []string

	// Logger receives debug-level cache diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Session resolves and caches table metadata for one database connection.
// It owns the in-process metadata table and the name registries; the engine
// Loader and the cache Store are collaborators it orchestrates.
//
// A Session is not safe for concurrent use. Callers sharing a connection
// across goroutines must serialize access externally.
type Session struct {
	loader  Loader
	store   cache.Store
	prefix  string
	ttl     time.Duration
	tag     string
	exclude map[string]struct{}
	log     *zap.Logger

	// Kind dispatch table, built once at construction.
	ops map[Kind]kindOps

	tables          map[string]*tableEntry // normalized raw name -> entry
	tableNames      map[string][]string    // schema ("" = default) -> table names
	viewNames       map[string][]string    // schema ("" = default) -> view names
	schemaNames     []string
	haveSchemaNames bool
}

// kindOps binds one metadata kind to its loader call and its slot on a
// tableEntry.
type kindOps struct {
	load func(ctx context.Context, table TableIdentity) (interface{}, error)
	get  func(e *tableEntry) interface{}
	set  func(e *tableEntry, v interface{}) error
}

// NewSession creates a metadata session over the given engine loader.
func NewSession(loader Loader, cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tag := cfg.CacheTag
	if tag == "" {
		tag = "session:" + uuid.NewString()
	}

	s := &Session{
		loader:     loader,
		store:      cfg.Store,
		prefix:     cfg.TablePrefix,
		ttl:        cfg.CacheTTL,
		tag:        tag,
		exclude:    make(map[string]struct{}, len(cfg.Exclude)),
		log:        log,
		tables:     make(map[string]*tableEntry),
		tableNames: make(map[string][]string),
		viewNames:  make(map[string][]string),
	}
	for _, name := range cfg.Exclude {
		s.exclude[ResolveTableName(name, cfg.TablePrefix).Raw] = struct{}{}
	}
	s.ops = buildKindOps(loader)
	return s
}

// buildKindOps builds the kind dispatch table. Loader results are unwrapped
// to an untyped nil where the kind's absent value is a nil pointer, so
// callers of TableMetadata can test against plain nil.
func buildKindOps(loader Loader) map[Kind]kindOps {
	return map[Kind]kindOps{
		KindSchema: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadTableSchema(ctx, t)
				if v == nil || err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} {
				if e.schema == nil {
					return nil
				}
				return e.schema
			},
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.schema = nil
					return nil
				}
				ts, ok := v.(*TableSchema)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindSchema, v)
				}
				e.schema = ts
				return nil
			},
		},
		KindPrimaryKey: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadPrimaryKey(ctx, t)
				if v == nil || err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} {
				if e.primaryKey == nil {
					return nil
				}
				return e.primaryKey
			},
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.primaryKey = nil
					return nil
				}
				c, ok := v.(*Constraint)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindPrimaryKey, v)
				}
				e.primaryKey = c
				return nil
			},
		},
		KindUniques: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadUniques(ctx, t)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} { return e.uniques },
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.uniques = nil
					return nil
				}
				c, ok := v.([]Constraint)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindUniques, v)
				}
				e.uniques = c
				return nil
			},
		},
		KindForeignKeys: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadForeignKeys(ctx, t)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} { return e.foreignKeys },
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.foreignKeys = nil
					return nil
				}
				fk, ok := v.([]ForeignKey)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindForeignKeys, v)
				}
				e.foreignKeys = fk
				return nil
			},
		},
		KindIndexes: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadIndexes(ctx, t)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} { return e.indexes },
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.indexes = nil
					return nil
				}
				idx, ok := v.([]Index)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindIndexes, v)
				}
				e.indexes = idx
				return nil
			},
		},
		KindDefaults: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadDefaults(ctx, t)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} { return e.defaults },
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.defaults = nil
					return nil
				}
				d, ok := v.([]DefaultValue)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindDefaults, v)
				}
				e.defaults = d
				return nil
			},
		},
		KindChecks: {
			load: func(ctx context.Context, t TableIdentity) (interface{}, error) {
				v, err := loader.LoadChecks(ctx, t)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			get: func(e *tableEntry) interface{} { return e.checks },
			set: func(e *tableEntry, v interface{}) error {
				if v == nil {
					e.checks = nil
					return nil
				}
				c, ok := v.([]Check)
				if !ok {
					return fmt.Errorf("metadata kind %s: unexpected value type %T", KindChecks, v)
				}
				e.checks = c
				return nil
			},
		},
	}
}

// TableMetadata returns the metadata of the given kind for a table. Without
// refresh, a previously resolved kind is served from the in-process table;
// otherwise the Session hydrates the table's entry from the cache Store on
// first access, invokes the engine loader for kinds still missing, and
// persists the whole entry back to the Store.
//
// Tables on the exclusion list bypass every cache layer: each call reaches
// the engine loader and nothing is retained.
func (s *Session) TableMetadata(ctx context.Context, name string, kind Kind, refresh bool) (interface{}, error) {
	ops, ok := s.ops[kind]
	if !ok {
		return nil, fmt.Errorf("unknown metadata kind: %d", kind)
	}
	id := ResolveTableName(name, s.prefix)

	if s.excluded(id) {
		return ops.load(ctx, id)
	}

	entry, have := s.tables[id.Raw]
	if !refresh && have && entry.loaded[kind] {
		return ops.get(entry), nil
	}

	if !have {
		hydrated, err := s.loadFromStore(ctx, id)
		if err != nil {
			return nil, err
		}
		if hydrated != nil {
			entry, have = hydrated, true
			s.tables[id.Raw] = hydrated
			if !refresh && entry.loaded[kind] {
				return ops.get(entry), nil
			}
		}
	}
	if !have {
		entry = newTableEntry()
		s.tables[id.Raw] = entry
	}

	value, err := ops.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ops.set(entry, value); err != nil {
		return nil, err
	}
	entry.loaded[kind] = true

	if err := s.saveToStore(ctx, id, entry); err != nil {
		return nil, err
	}
	return ops.get(entry), nil
}

// TableSchema returns the table's column layout, or nil if the table does
// not exist.
func (s *Session) TableSchema(ctx context.Context, name string, refresh bool) (*TableSchema, error) {
	v, err := s.TableMetadata(ctx, name, KindSchema, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*TableSchema), nil
}

// TablePrimaryKey returns the table's primary key, or nil if it has none.
func (s *Session) TablePrimaryKey(ctx context.Context, name string, refresh bool) (*Constraint, error) {
	v, err := s.TableMetadata(ctx, name, KindPrimaryKey, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Constraint), nil
}

// TableUniques returns the table's unique constraints.
func (s *Session) TableUniques(ctx context.Context, name string, refresh bool) ([]Constraint, error) {
	v, err := s.TableMetadata(ctx, name, KindUniques, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]Constraint), nil
}

// TableForeignKeys returns the table's foreign key constraints.
func (s *Session) TableForeignKeys(ctx context.Context, name string, refresh bool) ([]ForeignKey, error) {
	v, err := s.TableMetadata(ctx, name, KindForeignKeys, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]ForeignKey), nil
}

// TableIndexes returns the table's indexes.
func (s *Session) TableIndexes(ctx context.Context, name string, refresh bool) ([]Index, error) {
	v, err := s.TableMetadata(ctx, name, KindIndexes, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]Index), nil
}

// TableDefaults returns the table's column default value constraints.
func (s *Session) TableDefaults(ctx context.Context, name string, refresh bool) ([]DefaultValue, error) {
	v, err := s.TableMetadata(ctx, name, KindDefaults, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]DefaultValue), nil
}

// TableChecks returns the table's check constraints.
func (s *Session) TableChecks(ctx context.Context, name string, refresh bool) ([]Check, error) {
	v, err := s.TableMetadata(ctx, name, KindChecks, refresh)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]Check), nil
}

// SetMetadata injects a precomputed metadata value for a table. The value
// goes into the in-process table only; nothing is written to the cache
// Store.
func (s *Session) SetMetadata(name string, kind Kind, value interface{}) error {
	ops, ok := s.ops[kind]
	if !ok {
		return fmt.Errorf("unknown metadata kind: %d", kind)
	}
	id := ResolveTableName(name, s.prefix)

	entry, have := s.tables[id.Raw]
	if !have {
		entry = newTableEntry()
		s.tables[id.Raw] = entry
	}
	if err := ops.set(entry, value); err != nil {
		return err
	}
	entry.loaded[kind] = true
	return nil
}

// TableNames returns the names of all tables in schema, memoized per schema
// key until refreshed. An empty schema means the current/default schema.
func (s *Session) TableNames(ctx context.Context, schema string, refresh bool) ([]string, error) {
	if names, ok := s.tableNames[schema]; ok && !refresh {
		return names, nil
	}
	names, err := s.loader.FindTableNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	s.tableNames[schema] = names
	return names, nil
}

// SchemaNames returns the names of all schemas in the database, memoized
// until refreshed. Engines without schema discovery fail with
// ErrNotSupported.
func (s *Session) SchemaNames(ctx context.Context, refresh bool) ([]string, error) {
	if s.haveSchemaNames && !refresh {
		return s.schemaNames, nil
	}
	names, err := s.loader.FindSchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	s.schemaNames = names
	s.haveSchemaNames = true
	return names, nil
}

// ViewNames returns the names of all views in schema, memoized per schema
// key until refreshed.
func (s *Session) ViewNames(ctx context.Context, schema string, refresh bool) ([]string, error) {
	if names, ok := s.viewNames[schema]; ok && !refresh {
		return names, nil
	}
	names, err := s.loader.FindViewNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	s.viewNames[schema] = names
	return names, nil
}

// SchemaMetadata returns the metadata of the given kind for every table in
// schema, in table-name order. Tables whose value for the kind is absent
// (for example, no primary key) are skipped.
func (s *Session) SchemaMetadata(ctx context.Context, schema string, kind Kind, refresh bool) ([]interface{}, error) {
	names, err := s.TableNames(ctx, schema, refresh)
	if err != nil {
		return nil, err
	}

	var values []interface{}
	for _, name := range names {
		id := Qualified(schema, name)
		v, err := s.TableMetadata(ctx, id.Raw, kind, refresh)
		if err != nil {
			return nil, err
		}
		if v != nil {
			values = append(values, v)
		}
	}
	return values, nil
}

// Refresh invalidates this session's cache tag and drops all in-process
// table metadata and the table-name registry. View names survive; they are
// re-discovered only on an explicit ViewNames refresh.
func (s *Session) Refresh(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Invalidate(ctx, s.tag); err != nil {
			return err
		}
	}
	s.tables = make(map[string]*tableEntry)
	s.tableNames = make(map[string][]string)
	s.log.Debug("schema metadata refreshed", zap.String("tag", s.tag))
	return nil
}

// RefreshTable drops one table's in-process entry and its cache Store key.
// The table-name registry is cleared too, since the table's existence may
// have changed; other tables' cached metadata is untouched.
func (s *Session) RefreshTable(ctx context.Context, name string) error {
	id := ResolveTableName(name, s.prefix)
	delete(s.tables, id.Raw)
	s.tableNames = make(map[string][]string)
	if s.store != nil {
		return s.store.Delete(ctx, s.cacheKey(id))
	}
	return nil
}

// loadFromStore fetches and decodes a table's cache envelope. A miss or an
// incompatible envelope yields a nil entry; Store I/O faults propagate.
func (s *Session) loadFromStore(ctx context.Context, id TableIdentity) (*tableEntry, error) {
	if s.store == nil {
		return nil, nil
	}
	data, err := s.store.Get(ctx, s.cacheKey(id))
	if err != nil {
		if cache.IsCacheMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	entry, ok := decodeEntry(data)
	if !ok {
		s.log.Debug("discarding incompatible cache entry", zap.String("table", id.Raw))
		return nil, nil
	}
	s.log.Debug("hydrated table metadata from cache", zap.String("table", id.Raw))
	return entry, nil
}

// saveToStore persists a table's whole entry under this session's tag.
func (s *Session) saveToStore(ctx context.Context, id TableIdentity, entry *tableEntry) error {
	if s.store == nil {
		return nil
	}
	data, err := entry.encode()
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.cacheKey(id), data, s.ttl, s.tag)
}

func (s *Session) excluded(id TableIdentity) bool {
	_, ok := s.exclude[id.Raw]
	return ok
}

func (s *Session) cacheKey(id TableIdentity) string {
	return "table:" + id.Raw
}
