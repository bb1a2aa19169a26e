package schema

import "fmt"

// Kind identifies one slice of a table's metadata.
type Kind int

const (
	// KindSchema is the full table schema: columns, types, and the
	// primary key column list.
	KindSchema Kind = iota
	// KindPrimaryKey is the table's primary key constraint
	KindPrimaryKey
	// KindUniques is the table's unique constraints
	KindUniques
	// KindForeignKeys is the table's foreign key constraints
	KindForeignKeys
	// KindIndexes is the table's indexes, unique or not
	KindIndexes
	// KindDefaults is the table's column default value constraints
	KindDefaults
	// KindChecks is the table's check constraints
	KindChecks
)

// String returns the string representation of the metadata kind
func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindPrimaryKey:
		return "primary_key"
	case KindUniques:
		return "uniques"
	case KindForeignKeys:
		return "foreign_keys"
	case KindIndexes:
		return "indexes"
	case KindDefaults:
		return "defaults"
	case KindChecks:
		return "checks"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "schema":
		return KindSchema, nil
	case "primary_key":
		return KindPrimaryKey, nil
	case "uniques":
		return KindUniques, nil
	case "foreign_keys":
		return KindForeignKeys, nil
	case "indexes":
		return KindIndexes, nil
	case "defaults":
		return KindDefaults, nil
	case "checks":
		return KindChecks, nil
	default:
		return 0, fmt.Errorf("unknown metadata kind: %s", s)
	}
}

// Kinds returns every metadata kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindSchema,
		KindPrimaryKey,
		KindUniques,
		KindForeignKeys,
		KindIndexes,
		KindDefaults,
		KindChecks,
	}
}
