// Package schema provides a database-agnostic view of table and column
// metadata with lazy, versioned caching. It defines the engine-independent
// representations of tables, columns, and constraints, the Loader capability
// interface engine packages implement, and the Session that resolves and
// caches metadata per connection.
package schema

import "fmt"

// ColumnType is the abstract, engine-independent type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeChar
	TypeText
	TypeTinyInt
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeTime
	TypeDateTime
	TypeTimestamp
	TypeBinary
	TypeMoney
	TypeJSON
)

// String returns the string representation of the column type
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeChar:
		return "char"
	case TypeText:
		return "text"
	case TypeTinyInt:
		return "tinyint"
	case TypeSmallInt:
		return "smallint"
	case TypeInteger:
		return "integer"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeDateTime:
		return "datetime"
	case TypeTimestamp:
		return "timestamp"
	case TypeBinary:
		return "binary"
	case TypeMoney:
		return "money"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseColumnType converts a string to a ColumnType
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "char":
		return TypeChar, nil
	case "text":
		return TypeText, nil
	case "tinyint":
		return TypeTinyInt, nil
	case "smallint":
		return TypeSmallInt, nil
	case "integer":
		return TypeInteger, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "double":
		return TypeDouble, nil
	case "decimal":
		return TypeDecimal, nil
	case "boolean":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "datetime":
		return TypeDateTime, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "binary":
		return TypeBinary, nil
	case "money":
		return TypeMoney, nil
	case "json":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown column type: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler so envelopes persist the
// symbolic name rather than the enum ordinal.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ColumnSchema describes a single table column.
type ColumnSchema struct {
	Name          string      `json:"name"`
	Type          ColumnType  `json:"type"`
	DBType        string      `json:"db_type"` // native type as reported by the engine
	Nullable      bool        `json:"nullable"`
	PrimaryKey    bool        `json:"primary_key"`
	AutoIncrement bool        `json:"auto_increment"`
	Unsigned      bool        `json:"unsigned"`
	Size          int         `json:"size,omitempty"`      // display size or character length
	Precision     int         `json:"precision,omitempty"` // numeric precision
	Scale         int         `json:"scale,omitempty"`     // numeric scale
	Default       interface{} `json:"default,omitempty"`
	EnumValues    []string    `json:"enum_values,omitempty"`
	Comment       string      `json:"comment,omitempty"`
}

// TableSchema describes a table: its resolved name parts, columns in
// definition order, and primary key column names.
type TableSchema struct {
	Name       string         `json:"name"`
	Schema     string         `json:"schema,omitempty"`
	FullName   string         `json:"full_name"`
	Columns    []ColumnSchema `json:"columns"`
	PrimaryKey []string       `json:"primary_key,omitempty"`
	Comment    string         `json:"comment,omitempty"`
}

// Column returns the column with the given name, or nil if the table has no
// such column.
func (t *TableSchema) Column(name string) *ColumnSchema {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the names of all columns in definition order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// Constraint is a named constraint over a set of columns. It is the common
// shape shared by primary key and unique constraints and embedded by the
// richer constraint types.
type Constraint struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ReferentialAction is the action taken on dependent rows when a referenced
// row is updated or deleted.
type ReferentialAction int

const (
	ActionNoAction ReferentialAction = iota
	ActionRestrict
	ActionCascade
	ActionSetNull
	ActionSetDefault
)

// String returns the string representation of the referential action
func (a ReferentialAction) String() string {
	switch a {
	case ActionNoAction:
		return "no_action"
	case ActionRestrict:
		return "restrict"
	case ActionCascade:
		return "cascade"
	case ActionSetNull:
		return "set_null"
	case ActionSetDefault:
		return "set_default"
	default:
		return "unknown"
	}
}

// ParseReferentialAction converts a string to a ReferentialAction
func ParseReferentialAction(s string) (ReferentialAction, error) {
	switch s {
	case "no_action":
		return ActionNoAction, nil
	case "restrict":
		return ActionRestrict, nil
	case "cascade":
		return ActionCascade, nil
	case "set_null":
		return ActionSetNull, nil
	case "set_default":
		return ActionSetDefault, nil
	default:
		return 0, fmt.Errorf("unknown referential action: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (a ReferentialAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *ReferentialAction) UnmarshalText(text []byte) error {
	parsed, err := ParseReferentialAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ForeignKey is a foreign key constraint. Columns on the embedded Constraint
// are the referencing columns; ForeignColumns are the referenced columns, in
// matching order.
type ForeignKey struct {
	Constraint
	ForeignSchema  string            `json:"foreign_schema,omitempty"`
	ForeignTable   string            `json:"foreign_table"`
	ForeignColumns []string          `json:"foreign_columns"`
	OnDelete       ReferentialAction `json:"on_delete"`
	OnUpdate       ReferentialAction `json:"on_update"`
}

// Index describes a table index.
type Index struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// DefaultValue is a column default value constraint.
type DefaultValue struct {
	Constraint
	Value interface{} `json:"value"`
}

// Check is a check constraint.
type Check struct {
	Constraint
	Expression string `json:"expression"`
}
